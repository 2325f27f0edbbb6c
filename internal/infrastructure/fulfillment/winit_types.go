package fulfillment

import (
	"encoding/json"

	"github.com/locoganga/storefront/internal/domain/order"
)

// API action names on the Winit router endpoint
const (
	actionProductBaseList = "wanyilian.supplier.spu.getProductBaseList"
	actionQuerySPUList    = "wanyilian.supplier.spu.querySPUList"
	actionQueryWarehouse  = "wanyilian.platform.queryWarehouse"
	actionQueryDelivery   = "wanyilian.platform.queryDeliveryWay"
	actionOrderCreate     = "wanyilian.distributor.order.create"
	actionOrderVoid       = "wanyilian.distributor.order.void"
	actionOrderConfirm    = "wanyilian.distributor.order.confirm"
	actionOrderQuery      = "wanyilian.distributor.order.queryOrder"
	actionOrderQueryList  = "wanyilian.distributor.order.queryOrderList"
)

// apiRequest is the signed envelope posted for every action. Data carries the
// action payload as the exact bytes that were signed.
type apiRequest struct {
	Action     string          `json:"action"`
	AppKey     string          `json:"app_key"`
	Data       json.RawMessage `json:"data"`
	Format     string          `json:"format"`
	Language   string          `json:"language"`
	Platform   string          `json:"platform"`
	Sign       string          `json:"sign"`
	SignMethod string          `json:"sign_method"`
	Timestamp  string          `json:"timestamp"`
	Version    string          `json:"version"`
}

// apiResponse is the common response envelope. Code "0" means success; any
// other code is an application-level rejection.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// PageParams is the upstream pagination block, echoed back with totalCount set
type PageParams struct {
	PageNo     int   `json:"pageNo"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
}

// ProductBaseListRequest pages through the base product catalog
type ProductBaseListRequest struct {
	WarehouseCode string     `json:"warehouseCode,omitempty"`
	PageParams    PageParams `json:"pageParams"`
}

// ProductBase is one entry from getProductBaseList
type ProductBase struct {
	SPU          string `json:"spu"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailsUrl"`
	Status       string `json:"status"`
}

// ProductBaseListResult is the data block of getProductBaseList
type ProductBaseListResult struct {
	SPUList    []ProductBase `json:"SPUList"`
	PageParams PageParams    `json:"pageParams"`
}

// SPUListRequest fetches priced, inventory-bearing SPU detail
type SPUListRequest struct {
	WarehouseCode string     `json:"warehouseCode,omitempty"`
	SPUList       []string   `json:"spuList,omitempty"`
	PageParams    PageParams `json:"pageParams"`
}

// SKUDetail is one sellable variant under an SPU
type SKUDetail struct {
	SKU           string `json:"sku"`
	Price         string `json:"supplyPrice"`
	Inventory     int64  `json:"inventory"`
	Specification string `json:"specification"`
}

// SPUDetail is one entry from querySPUList
type SPUDetail struct {
	SPU            string      `json:"spu"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	ThumbnailURL   string      `json:"thumbnailsUrl"`
	SupplyPrice    string      `json:"supplyPrice"`
	TotalInventory int64       `json:"totalInventory"`
	SKUList        []SKUDetail `json:"SKUList"`
}

// SPUListResult is the data block of querySPUList
type SPUListResult struct {
	SPUList    []SPUDetail `json:"SPUList"`
	PageParams PageParams  `json:"pageParams"`
}

// Warehouse is one entry from queryWarehouse
type Warehouse struct {
	WarehouseCode string `json:"warehouseCode"`
	WarehouseName string `json:"warehouseName"`
	CountryCode   string `json:"countryCode"`
}

// DeliveryWay is one entry from queryDeliveryWay
type DeliveryWay struct {
	DeliveryWayCode string `json:"deliveryWayCode"`
	DeliveryWayName string `json:"deliveryWayName"`
	WarehouseCode   string `json:"warehouseCode"`
}

// OutboundProduct is one product line in an outbound order package
type OutboundProduct struct {
	ProductCode string `json:"productCode"`
	ProductNum  int64  `json:"productNum"`
}

// OutboundPackage groups product lines under a warehouse and delivery way
type OutboundPackage struct {
	WarehouseCode   string            `json:"warehouseCode"`
	DeliveryWayCode string            `json:"deliveryWayCode"`
	ProductList     []OutboundProduct `json:"productList"`
}

// OutboundOrderRequest creates an outbound shipment. Repeatable plus
// SellerOrderNo make the create idempotent on the upstream side.
type OutboundOrderRequest struct {
	Repeatable    string            `json:"repeatable"`
	IsAuto        string            `json:"isAuto"`
	SellerOrderNo string            `json:"sellerOrderNo"`
	RecipientName string            `json:"recipientName"`
	PhoneNum      string            `json:"phoneNum"`
	ZipCode       string            `json:"zipCode"`
	EmailAddress  string            `json:"emailAddress"`
	State         string            `json:"state"`
	Region        string            `json:"region"`
	City          string            `json:"city"`
	Address1      string            `json:"address1"`
	Address2      string            `json:"address2"`
	PackageList   []OutboundPackage `json:"packageList"`
}

// OutboundOrderResult is the data block of order.create
type OutboundOrderResult struct {
	OrderNum      string `json:"orderNum"`
	SellerOrderNo string `json:"sellerOrderNo"`
}

// OrderQueryRequest looks up one outbound order
type OrderQueryRequest struct {
	OrderNum      string `json:"orderNum,omitempty"`
	SellerOrderNo string `json:"sellerOrderNo,omitempty"`
}

// OutboundOrderDetail is the data block of order.queryOrder
type OutboundOrderDetail struct {
	OrderNum       string `json:"orderNum"`
	SellerOrderNo  string `json:"sellerOrderNo"`
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
	CreatedTime    string `json:"createdTime"`
}

// OrderListRequest pages through outbound orders
type OrderListRequest struct {
	Status     string     `json:"status,omitempty"`
	DateFrom   string     `json:"dateFrom,omitempty"`
	DateTo     string     `json:"dateTo,omitempty"`
	PageParams PageParams `json:"pageParams"`
}

// OrderListResult is the data block of order.queryOrderList
type OrderListResult struct {
	OrderList  []OutboundOrderDetail `json:"orderList"`
	PageParams PageParams            `json:"pageParams"`
}

// VoidOrderRequest cancels an outbound order upstream
type VoidOrderRequest struct {
	OrderNum string `json:"orderNum"`
}

// ConfirmOrderRequest confirms a draft outbound order for processing
type ConfirmOrderRequest struct {
	OrderNums []string `json:"orderNums"`
}

// Upstream outbound order status codes
const (
	UpstreamStatusDraft      = "DR"
	UpstreamStatusProcessing = "PHI"
	UpstreamStatusShipped    = "SHP"
	UpstreamStatusDelivered  = "DLV"
	UpstreamStatusVoid       = "VO"
)

// MapUpstreamStatus translates an upstream outbound status code to the local
// order lifecycle. Unknown codes map to fulfillment_created so a sync never
// regresses an order on unrecognized input.
func MapUpstreamStatus(code string) order.Status {
	switch code {
	case UpstreamStatusDraft, UpstreamStatusProcessing:
		return order.StatusFulfillmentCreated
	case UpstreamStatusShipped, UpstreamStatusDelivered:
		return order.StatusFulfilled
	case UpstreamStatusVoid:
		return order.StatusCancelled
	default:
		return order.StatusFulfillmentCreated
	}
}
