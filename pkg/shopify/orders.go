package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
)

// OrderPageParams drive cursor pagination over the order listing endpoint.
type OrderPageParams struct {
	SinceID ID
	Limit   int
	Status  string // "any" includes archived and canceled orders
}

// OrderPage is one page of upstream orders plus pagination hints.
type OrderPage struct {
	Orders []Order
	// NextPageInfo is the page_info token from the Link response header,
	// empty when Shopify reported no next page.
	NextPageInfo string
}

// ListOrders fetches one page of orders ordered by id descending from
// SinceID. A page shorter than Limit means the listing is exhausted.
func (c *Client) ListOrders(ctx context.Context, params OrderPageParams) (*OrderPage, error) {
	limit := params.Limit
	if limit <= 0 || limit > 250 {
		limit = 250
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("order", "id desc")
	if params.Status != "" {
		query.Set("status", params.Status)
	}
	if !params.SinceID.Empty() {
		query.Set("since_id", params.SinceID.String())
	}

	body, header, err := c.get(ctx, "orders.json", query)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode orders page")
	}

	return &OrderPage{
		Orders:       payload.Orders,
		NextPageInfo: nextPageInfo(header),
	}, nil
}

// GetOrder fetches a single order by upstream id.
func (c *Client) GetOrder(ctx context.Context, orderID ID) (*Order, error) {
	if orderID.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shopify order id required")
	}

	body, _, err := c.get(ctx, fmt.Sprintf("orders/%s.json", orderID), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Order *Order `json:"order"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode order")
	}
	if payload.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("shopify order %s not found", orderID))
	}
	return payload.Order, nil
}

var linkNextPattern = regexp.MustCompile(`<[^>]*[?&]page_info=([^&>]+)[^>]*>;\s*rel="next"`)

// nextPageInfo extracts the next-page cursor from a Link header, when
// Shopify advertises cursor pagination alongside since_id.
func nextPageInfo(header http.Header) string {
	link := header.Get("Link")
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		if match := linkNextPattern.FindStringSubmatch(strings.TrimSpace(part)); match != nil {
			return match[1]
		}
	}
	return ""
}
