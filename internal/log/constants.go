package log

const (
	KeyAppName       = "app"
	KeyCartID        = "cartId"
	KeyCartKey       = "cartKey"
	KeyCartLineID    = "cartLineId"
	KeyConfig        = "config"
	KeyDbURL         = "dbUrl"
	KeyEmail         = "email"
	KeyGrandTotal    = "grandTotal"
	KeyOrderID       = "orderId"
	KeyProcess       = "process"
	KeyProductID     = "productId"
	KeyQuantity      = "quantity"
	KeyRequestBody   = "requestBody"
	KeyRequestHeader = "requestHeader"
	KeyRequestHost   = "host"
	KeyRequestID     = "requestId"
	KeyRequestIp     = "requesterIP"
	KeyRequestMethod = "requestMethod"
	KeyRequestURI    = "requestURI"
	KeyRequestURL    = "requestURL"
	KeySelectors     = "selectors"
	KeySessionToken  = "sessionToken"
	KeySpanID        = "spanId"
	KeySubtotal      = "subtotal"
	KeyTag           = "tag"
	KeyTraceID       = "traceId"
	KeyUserID        = "userId"
	KeyVariationKey  = "variationKey"
)
