package types

// JSONMap stores loosely structured payload snapshots (raw upstream orders,
// line item properties) as jsonb columns.
type JSONMap map[string]any
