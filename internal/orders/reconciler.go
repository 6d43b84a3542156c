package orders

import (
	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

// Reconcile merges the latest upstream line items against the persisted set
// for one order and returns the full item set to write back.
//
// Rules, in order of authority:
//   - an item already marked removed locally stays removed, even when the
//     upstream payload reports it live again (admin decision wins)
//   - an item present locally but absent upstream is retired in place:
//     is_removed true, quantity zero, synthetic removed marker. Never
//     hard-deleted
//   - an upstream item with a removal signal (zero quantity, removed or
//     cancelled fulfillment reading, marker property) arrives removed
//   - upstream items with no local counterpart are inserted fresh
//   - locally created lines with no upstream id pass through untouched
//
// Matching is by upstream line-item id in canonical string form, so a
// numeric payload id and a stored string id always meet.
func Reconcile(existing, upstream []models.OrderItem) []models.OrderItem {
	existingByID := make(map[shopify.ID]models.OrderItem, len(existing))
	for _, item := range existing {
		if key := itemKey(item); !key.Empty() {
			existingByID[key] = item
		}
	}

	result := make([]models.OrderItem, 0, len(existing)+len(upstream))
	seen := make(map[shopify.ID]struct{}, len(upstream))

	for _, fresh := range upstream {
		key := itemKey(fresh)
		if key.Empty() {
			result = append(result, fresh)
			continue
		}
		seen[key] = struct{}{}

		prior, known := existingByID[key]
		if !known {
			result = append(result, fresh)
			continue
		}

		merged := fresh
		merged.ID = prior.ID
		merged.OrderID = prior.OrderID
		merged.CreatedAt = prior.CreatedAt
		if prior.IsRemoved {
			merged.IsRemoved = true
			merged.Quantity = prior.Quantity
			merged.FulfillmentStatus = prior.FulfillmentStatus
		}
		result = append(result, merged)
	}

	// Existing rows the upstream payload no longer carries.
	for _, item := range existing {
		key := itemKey(item)
		if key.Empty() {
			// Locally created line, upstream has no say over it.
			result = append(result, item)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		if !item.IsRemoved {
			item.IsRemoved = true
			item.Quantity = 0
			item.FulfillmentStatus = removedFulfillmentMarker
		}
		result = append(result, item)
	}

	return result
}

func itemKey(item models.OrderItem) shopify.ID {
	if item.ShopifyLineItemID == nil {
		return ""
	}
	return shopify.NormalizeID(*item.ShopifyLineItemID)
}
