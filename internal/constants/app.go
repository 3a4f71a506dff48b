package constants

const (
	AppStorefront     = "storefront"
	AppCartService    = "storefront-cart"
	AppCatalogService = "storefront-catalog"
	AppUserService    = "storefront-user"
	AudienceCustomer  = "customer"
	CookieSessionName = "mk_session"
)
