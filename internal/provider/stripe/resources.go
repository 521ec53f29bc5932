package stripe

import (
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"
)

const (
	Products         domain.ResourceType = "products"
	Prices           domain.ResourceType = "prices"
	Coupons          domain.ResourceType = "coupons"
	Customers        domain.ResourceType = "customers"
	PromotionCodes   domain.ResourceType = "promotion_codes"
	PaymentMethods   domain.ResourceType = "payment_methods"
	TaxIDs           domain.ResourceType = "tax_ids"
	Subscriptions    domain.ResourceType = "subscriptions"
	SubscriptionItem domain.ResourceType = "subscription_items"
	Invoices         domain.ResourceType = "invoices"
	Charges          domain.ResourceType = "charges"
	Refunds          domain.ResourceType = "refunds"
	Disputes         domain.ResourceType = "disputes"
	PaymentIntents   domain.ResourceType = "payment_intents"
	SetupIntents     domain.ResourceType = "setup_intents"
	CreditNotes      domain.ResourceType = "credit_notes"
)

// Graph follows Stripe's foreign keys: prices reference products, promotion
// codes reference coupons, subscriptions reference customers and prices,
// invoices reference subscriptions, charges reference invoices, and so on.
var Graph = provider.MustDependencyGraph(
	provider.ResourceDefinition{Type: Products, Core: true},
	provider.ResourceDefinition{Type: Prices, Core: true},
	provider.ResourceDefinition{Type: Coupons},
	provider.ResourceDefinition{Type: Customers, Core: true},
	provider.ResourceDefinition{Type: PromotionCodes},
	provider.ResourceDefinition{Type: PaymentMethods, ParentType: Customers},
	provider.ResourceDefinition{Type: TaxIDs, ParentType: Customers},
	provider.ResourceDefinition{Type: Subscriptions, Core: true},
	provider.ResourceDefinition{Type: SubscriptionItem, ParentType: Subscriptions},
	provider.ResourceDefinition{Type: Invoices, Core: true},
	provider.ResourceDefinition{Type: Charges, Core: true},
	provider.ResourceDefinition{Type: Refunds},
	provider.ResourceDefinition{Type: Disputes},
	provider.ResourceDefinition{Type: PaymentIntents},
	provider.ResourceDefinition{Type: SetupIntents},
	provider.ResourceDefinition{Type: CreditNotes},
)

type resourceSpec struct {
	// listPath may contain a %s for the parent id
	listPath string
	// getPath contains a %s for the object id, preceded by one for the parent
	// id when the object is only addressable through its parent
	getPath          string
	getNeedsParent   bool
	parentQueryParam string
	parentField      string
	objectName       string
	listQuery        map[string]string
}

var resources = map[domain.ResourceType]resourceSpec{
	Products:         {listPath: "/v1/products", getPath: "/v1/products/%s", objectName: "product"},
	Prices:           {listPath: "/v1/prices", getPath: "/v1/prices/%s", objectName: "price", parentField: "product"},
	Coupons:          {listPath: "/v1/coupons", getPath: "/v1/coupons/%s", objectName: "coupon"},
	Customers:        {listPath: "/v1/customers", getPath: "/v1/customers/%s", objectName: "customer"},
	PromotionCodes:   {listPath: "/v1/promotion_codes", getPath: "/v1/promotion_codes/%s", objectName: "promotion_code"},
	PaymentMethods:   {listPath: "/v1/customers/%s/payment_methods", getPath: "/v1/payment_methods/%s", objectName: "payment_method", parentField: "customer"},
	TaxIDs:           {listPath: "/v1/customers/%s/tax_ids", getPath: "/v1/customers/%s/tax_ids/%s", getNeedsParent: true, objectName: "tax_id", parentField: "customer"},
	Subscriptions:    {listPath: "/v1/subscriptions", getPath: "/v1/subscriptions/%s", objectName: "subscription", parentField: "customer", listQuery: map[string]string{"status": "all"}},
	SubscriptionItem: {listPath: "/v1/subscription_items", getPath: "/v1/subscription_items/%s", parentQueryParam: "subscription", objectName: "subscription_item", parentField: "subscription"},
	Invoices:         {listPath: "/v1/invoices", getPath: "/v1/invoices/%s", objectName: "invoice", parentField: "customer"},
	Charges:          {listPath: "/v1/charges", getPath: "/v1/charges/%s", objectName: "charge", parentField: "customer"},
	Refunds:          {listPath: "/v1/refunds", getPath: "/v1/refunds/%s", objectName: "refund", parentField: "charge"},
	Disputes:         {listPath: "/v1/disputes", getPath: "/v1/disputes/%s", objectName: "dispute", parentField: "charge"},
	PaymentIntents:   {listPath: "/v1/payment_intents", getPath: "/v1/payment_intents/%s", objectName: "payment_intent", parentField: "customer"},
	SetupIntents:     {listPath: "/v1/setup_intents", getPath: "/v1/setup_intents/%s", objectName: "setup_intent", parentField: "customer"},
	CreditNotes:      {listPath: "/v1/credit_notes", getPath: "/v1/credit_notes/%s", objectName: "credit_note", parentField: "invoice"},
}

func resourceTypeForObject(objectName string) (domain.ResourceType, bool) {
	for rt, spec := range resources {
		if spec.objectName == objectName {
			return rt, true
		}
	}
	return "", false
}

func refetch(rt domain.ResourceType) provider.EventRoute {
	return provider.EventRoute{Action: provider.RefetchAction, ResourceType: rt}
}

func remove(rt domain.ResourceType) provider.EventRoute {
	return provider.EventRoute{Action: provider.DeleteAction, ResourceType: rt}
}

// eventRoutes lists every event type we react to.  Anything else is recorded
// and acknowledged without touching storage.
var eventRoutes = map[string]provider.EventRoute{
	"product.created": refetch(Products),
	"product.updated": refetch(Products),
	"product.deleted": remove(Products),

	"price.created": refetch(Prices),
	"price.updated": refetch(Prices),
	"price.deleted": remove(Prices),

	"coupon.created": refetch(Coupons),
	"coupon.updated": refetch(Coupons),
	"coupon.deleted": remove(Coupons),

	"customer.created": refetch(Customers),
	"customer.updated": refetch(Customers),
	"customer.deleted": remove(Customers),

	"promotion_code.created": refetch(PromotionCodes),
	"promotion_code.updated": refetch(PromotionCodes),

	"payment_method.attached":              refetch(PaymentMethods),
	"payment_method.updated":               refetch(PaymentMethods),
	"payment_method.automatically_updated": refetch(PaymentMethods),
	"payment_method.detached":              remove(PaymentMethods),

	"customer.tax_id.created": refetch(TaxIDs),
	"customer.tax_id.updated": refetch(TaxIDs),
	"customer.tax_id.deleted": remove(TaxIDs),

	"customer.subscription.created":                refetch(Subscriptions),
	"customer.subscription.updated":                refetch(Subscriptions),
	"customer.subscription.deleted":                refetch(Subscriptions),
	"customer.subscription.paused":                 refetch(Subscriptions),
	"customer.subscription.resumed":                refetch(Subscriptions),
	"customer.subscription.trial_will_end":         refetch(Subscriptions),
	"customer.subscription.pending_update_applied": refetch(Subscriptions),
	"customer.subscription.pending_update_expired": refetch(Subscriptions),

	"invoice.created":                 refetch(Invoices),
	"invoice.finalized":               refetch(Invoices),
	"invoice.updated":                 refetch(Invoices),
	"invoice.paid":                    refetch(Invoices),
	"invoice.payment_failed":          refetch(Invoices),
	"invoice.payment_succeeded":       refetch(Invoices),
	"invoice.payment_action_required": refetch(Invoices),
	"invoice.marked_uncollectible":    refetch(Invoices),
	"invoice.voided":                  refetch(Invoices),
	"invoice.sent":                    refetch(Invoices),
	"invoice.deleted":                 remove(Invoices),
	// invoice.upcoming previews an invoice that has no id yet, so it stays unrouted

	"charge.captured":  refetch(Charges),
	"charge.expired":   refetch(Charges),
	"charge.failed":    refetch(Charges),
	"charge.pending":   refetch(Charges),
	"charge.refunded":  refetch(Charges),
	"charge.succeeded": refetch(Charges),
	"charge.updated":   refetch(Charges),

	"charge.refund.updated": refetch(Refunds),
	"refund.created":        refetch(Refunds),
	"refund.updated":        refetch(Refunds),

	"charge.dispute.created":          refetch(Disputes),
	"charge.dispute.updated":          refetch(Disputes),
	"charge.dispute.closed":           refetch(Disputes),
	"charge.dispute.funds_reinstated": refetch(Disputes),
	"charge.dispute.funds_withdrawn":  refetch(Disputes),

	"payment_intent.created":                   refetch(PaymentIntents),
	"payment_intent.succeeded":                 refetch(PaymentIntents),
	"payment_intent.canceled":                  refetch(PaymentIntents),
	"payment_intent.payment_failed":            refetch(PaymentIntents),
	"payment_intent.processing":                refetch(PaymentIntents),
	"payment_intent.requires_action":           refetch(PaymentIntents),
	"payment_intent.amount_capturable_updated": refetch(PaymentIntents),
	"payment_intent.partially_funded":          refetch(PaymentIntents),

	"setup_intent.created":         refetch(SetupIntents),
	"setup_intent.succeeded":       refetch(SetupIntents),
	"setup_intent.canceled":        refetch(SetupIntents),
	"setup_intent.setup_failed":    refetch(SetupIntents),
	"setup_intent.requires_action": refetch(SetupIntents),

	"credit_note.created": refetch(CreditNotes),
	"credit_note.updated": refetch(CreditNotes),
	"credit_note.voided":  refetch(CreditNotes),
}
