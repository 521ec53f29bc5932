package shopify

import (
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"
)

const (
	Locations         domain.ResourceType = "locations"
	Products          domain.ResourceType = "products"
	CustomCollections domain.ResourceType = "custom_collections"
	SmartCollections  domain.ResourceType = "smart_collections"
	Customers         domain.ResourceType = "customers"
	PriceRules        domain.ResourceType = "price_rules"
	DiscountCodes     domain.ResourceType = "discount_codes"
	Orders            domain.ResourceType = "orders"
	Transactions      domain.ResourceType = "transactions"
	Fulfillments      domain.ResourceType = "fulfillments"
	Refunds           domain.ResourceType = "refunds"
	DraftOrders       domain.ResourceType = "draft_orders"
)

var Graph = provider.MustDependencyGraph(
	provider.ResourceDefinition{Type: Locations},
	provider.ResourceDefinition{Type: Products, Core: true},
	provider.ResourceDefinition{Type: CustomCollections},
	provider.ResourceDefinition{Type: SmartCollections},
	provider.ResourceDefinition{Type: Customers, Core: true},
	provider.ResourceDefinition{Type: PriceRules},
	provider.ResourceDefinition{Type: DiscountCodes, ParentType: PriceRules},
	provider.ResourceDefinition{Type: Orders, Core: true},
	provider.ResourceDefinition{Type: Transactions, ParentType: Orders},
	provider.ResourceDefinition{Type: Fulfillments, ParentType: Orders},
	provider.ResourceDefinition{Type: Refunds, ParentType: Orders},
	provider.ResourceDefinition{Type: DraftOrders},
)

// resourceSpec paths are relative to /admin/api/<version>/ and omit the
// .json suffix.  Nested resources carry a %s for the parent id.
type resourceSpec struct {
	path string
	// collection and member name the JSON envelope keys for list and single
	// object responses
	collection  string
	member      string
	parentField string
	listQuery   map[string]string
}

var resources = map[domain.ResourceType]resourceSpec{
	Locations:         {path: "locations", collection: "locations", member: "location"},
	Products:          {path: "products", collection: "products", member: "product"},
	CustomCollections: {path: "custom_collections", collection: "custom_collections", member: "custom_collection"},
	SmartCollections:  {path: "smart_collections", collection: "smart_collections", member: "smart_collection"},
	Customers:         {path: "customers", collection: "customers", member: "customer"},
	PriceRules:        {path: "price_rules", collection: "price_rules", member: "price_rule"},
	DiscountCodes:     {path: "price_rules/%s/discount_codes", collection: "discount_codes", member: "discount_code", parentField: "price_rule_id"},
	Orders:            {path: "orders", collection: "orders", member: "order", listQuery: map[string]string{"status": "any"}},
	Transactions:      {path: "orders/%s/transactions", collection: "transactions", member: "transaction", parentField: "order_id"},
	Fulfillments:      {path: "orders/%s/fulfillments", collection: "fulfillments", member: "fulfillment", parentField: "order_id"},
	Refunds:           {path: "orders/%s/refunds", collection: "refunds", member: "refund", parentField: "order_id"},
	DraftOrders:       {path: "draft_orders", collection: "draft_orders", member: "draft_order", listQuery: map[string]string{"status": "any"}},
}

func refetch(rt domain.ResourceType) provider.EventRoute {
	return provider.EventRoute{Action: provider.RefetchAction, ResourceType: rt}
}

func remove(rt domain.ResourceType) provider.EventRoute {
	return provider.EventRoute{Action: provider.DeleteAction, ResourceType: rt}
}

// Collection topics are not routed: the payload does not say whether the
// collection is custom or smart.  The periodic sync picks those changes up.
var eventRoutes = map[string]provider.EventRoute{
	"locations/create": refetch(Locations),
	"locations/update": refetch(Locations),
	"locations/delete": remove(Locations),

	"products/create": refetch(Products),
	"products/update": refetch(Products),
	"products/delete": remove(Products),

	"customers/create":  refetch(Customers),
	"customers/update":  refetch(Customers),
	"customers/enable":  refetch(Customers),
	"customers/disable": refetch(Customers),
	"customers/delete":  remove(Customers),

	"orders/create":              refetch(Orders),
	"orders/updated":             refetch(Orders),
	"orders/edited":              refetch(Orders),
	"orders/paid":                refetch(Orders),
	"orders/cancelled":           refetch(Orders),
	"orders/fulfilled":           refetch(Orders),
	"orders/partially_fulfilled": refetch(Orders),
	"orders/delete":              remove(Orders),

	"order_transactions/create": refetch(Transactions),

	"fulfillments/create": refetch(Fulfillments),
	"fulfillments/update": refetch(Fulfillments),

	"refunds/create": refetch(Refunds),

	"draft_orders/create": refetch(DraftOrders),
	"draft_orders/update": refetch(DraftOrders),
	"draft_orders/delete": remove(DraftOrders),
}
