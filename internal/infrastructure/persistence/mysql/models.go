package mysql

import (
	"time"

	"github.com/shopspring/decimal"
)

// 以下是infrastructure层的数据模型(带GORM tag)
// domain层的实体不依赖GORM,由各Repository负责两者之间的转换。
// 金额统一使用decimal(12,2),不使用浮点数。

// ProductModel 商品
type ProductModel struct {
	ID                uint            `gorm:"primaryKey"`
	SKU               string          `gorm:"uniqueIndex;size:64;not null;comment:SKU"`
	Name              string          `gorm:"size:200;not null;comment:商品名称"`
	CategoryID        uint            `gorm:"index;comment:分类ID"`
	SellingPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:售价"`
	CostPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;comment:成本价"`
	StockQuantity     int             `gorm:"index:idx_stock;not null;default:0;comment:库存数量"`
	LowStockThreshold int             `gorm:"not null;default:0;comment:低库存阈值"`
	TrackInventory    bool            `gorm:"index:idx_stock;not null;comment:是否跟踪库存"`
	AllowBackorder    bool            `gorm:"not null;default:false;comment:允许缺货下单"`
	MinOrderQuantity  int             `gorm:"not null;default:0;comment:享受阶梯价的最小购买量"`
	BulkPriceEnabled  bool            `gorm:"not null;default:false;comment:是否启用阶梯价"`
	TaxEnabled        bool            `gorm:"not null;default:false;comment:是否计税"`
	TaxPercentage     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0;comment:税率(%)"`
	TaxID             *uint           `gorm:"comment:税率ID"`
	BatchNumber       string          `gorm:"size:64;comment:最近入库批号"`
	ExpiryDate        *time.Time      `gorm:"type:date;comment:最近入库批次效期"`
	IsDeleted         bool            `gorm:"not null;default:false;comment:是否删除"`
	CreatedAt         time.Time       `gorm:"comment:创建时间"`
	UpdatedAt         time.Time       `gorm:"comment:更新时间"`
}

func (ProductModel) TableName() string {
	return "products"
}

// BatchModel 商品批次(批号在商品内唯一)
type BatchModel struct {
	ID              uint            `gorm:"primaryKey"`
	ProductID       uint            `gorm:"uniqueIndex:uk_product_batch;not null;comment:商品ID"`
	BatchNumber     string          `gorm:"uniqueIndex:uk_product_batch;size:64;not null;comment:批号"`
	ManufactureDate *time.Time      `gorm:"type:date;comment:生产日期"`
	ExpiryDate      *time.Time      `gorm:"type:date;index;comment:有效期至(空表示无效期)"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;comment:批次售价"`
	CostPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;comment:批次成本"`
	StockQuantity   int             `gorm:"not null;default:0;comment:批次库存"`
	Status          string          `gorm:"size:20;index;not null;comment:active/expired/out_of_stock/quarantined"`
	CreatedAt       time.Time       `gorm:"comment:创建时间"`
	UpdatedAt       time.Time       `gorm:"comment:更新时间"`
}

func (BatchModel) TableName() string {
	return "product_batches"
}

// InventoryModel 库存明细(batch_number为空表示商品级汇总行)
type InventoryModel struct {
	ID               uint            `gorm:"primaryKey"`
	ProductID        uint            `gorm:"uniqueIndex:uk_product_batch;not null;comment:商品ID"`
	BatchNumber      string          `gorm:"uniqueIndex:uk_product_batch;size:64;not null;default:'';comment:批号"`
	Quantity         int             `gorm:"not null;default:0;comment:在库数量"`
	ReservedQuantity int             `gorm:"not null;default:0;comment:预占数量"`
	ReorderLevel     int             `gorm:"not null;default:0;comment:补货点"`
	Status           string          `gorm:"size:20;not null;comment:in_stock/low_stock/out_of_stock"`
	ExpiryDate       *time.Time      `gorm:"type:date;comment:有效期至"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;comment:成本价"`
	LastRestockedAt  *time.Time      `gorm:"comment:最近入库时间"`
	LastSoldAt       *time.Time      `gorm:"comment:最近出库时间"`
	CreatedAt        time.Time       `gorm:"comment:创建时间"`
	UpdatedAt        time.Time       `gorm:"comment:更新时间"`
}

func (InventoryModel) TableName() string {
	return "inventories"
}

// MovementModel 库存流水(只追加)
type MovementModel struct {
	ID              uint            `gorm:"primaryKey"`
	ProductID       uint            `gorm:"index:idx_product_created;not null;comment:商品ID"`
	InventoryID     *uint           `gorm:"comment:库存明细ID"`
	Type            string          `gorm:"size:20;index;not null;comment:流水类型"`
	QuantityBefore  int             `gorm:"not null;comment:变动前数量"`
	QuantityChange  int             `gorm:"not null;comment:变动数量(带符号)"`
	QuantityAfter   int             `gorm:"not null;comment:变动后数量"`
	ReferenceType   string          `gorm:"size:30;index:idx_reference;comment:关联单据类型"`
	ReferenceID     *uint           `gorm:"comment:关联单据ID"`
	ReferenceNumber string          `gorm:"size:64;index:idx_reference;comment:关联单据号"`
	BatchNumber     string          `gorm:"size:64;comment:批号"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;comment:单位成本"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0;comment:总成本"`
	Reason          string          `gorm:"size:255;comment:原因"`
	CreatedBy       string          `gorm:"size:64;comment:操作人"`
	CreatedAt       time.Time       `gorm:"index:idx_product_created;comment:创建时间"`
}

func (MovementModel) TableName() string {
	return "inventory_movements"
}

// TierModel 阶梯价
type TierModel struct {
	ID                 uint             `gorm:"primaryKey"`
	ProductID          uint             `gorm:"index;not null;comment:商品ID"`
	MinQuantity        int              `gorm:"not null;comment:起订数量"`
	MaxQuantity        *int             `gorm:"comment:数量上限(空表示不封顶)"`
	Price              *decimal.Decimal `gorm:"type:decimal(12,2);comment:固定单价"`
	DiscountPercentage *decimal.Decimal `gorm:"type:decimal(5,2);comment:折扣百分比"`
	IsActive           bool             `gorm:"not null;comment:是否启用"`
	CreatedAt          time.Time        `gorm:"comment:创建时间"`
	UpdatedAt          time.Time        `gorm:"comment:更新时间"`
}

func (TierModel) TableName() string {
	return "bulk_price_tiers"
}

// TaxModel 税率
type TaxModel struct {
	ID         uint            `gorm:"primaryKey"`
	Name       string          `gorm:"size:100;not null;comment:名称"`
	Percentage decimal.Decimal `gorm:"type:decimal(5,2);not null;comment:税率(%)"`
	Type       string          `gorm:"size:20;not null;comment:inclusive/exclusive"`
	IsActive   bool            `gorm:"not null;comment:是否启用"`
	CreatedAt  time.Time       `gorm:"comment:创建时间"`
	UpdatedAt  time.Time       `gorm:"comment:更新时间"`
}

func (TaxModel) TableName() string {
	return "taxes"
}

// DiscountModel 优惠
// 规则按type展开成列: percentage用value+max_amount, fixed_amount用value,
// buy_x_get_y用buy_quantity/get_quantity/free_item_valuer
type DiscountModel struct {
	ID                    uint             `gorm:"primaryKey"`
	Code                  *string          `gorm:"uniqueIndex;size:50;comment:优惠码(大写,自动优惠可为空)"`
	Name                  string           `gorm:"size:100;not null;comment:名称"`
	Type                  string           `gorm:"size:20;not null;comment:percentage/fixed_amount/free_shipping/buy_x_get_y"`
	Value                 decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0;comment:折扣值"`
	MaxAmount             *decimal.Decimal `gorm:"type:decimal(12,2);comment:最高优惠金额"`
	BuyQuantity           int              `gorm:"not null;default:0;comment:买X"`
	GetQuantity           int              `gorm:"not null;default:0;comment:送Y"`
	FreeItemValuer        string           `gorm:"size:30;comment:赠品估值方式"`
	IsAutomatic           bool             `gorm:"index:idx_automatic;not null;default:false;comment:是否自动优惠"`
	IsActive              bool             `gorm:"index:idx_automatic;not null;comment:是否启用"`
	MinOrderAmount        decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0;comment:最低订单金额"`
	MinQuantity           int              `gorm:"not null;default:0;comment:最低购买数量"`
	UsageLimit            *int             `gorm:"comment:总使用次数上限"`
	UsedCount             int              `gorm:"not null;default:0;comment:已使用次数"`
	UsageLimitPerUser     *int             `gorm:"comment:每人使用次数上限"`
	StartDate             *time.Time       `gorm:"comment:开始时间"`
	EndDate               *time.Time       `gorm:"comment:结束时间"`
	Priority              int              `gorm:"not null;default:0;comment:优先级"`
	Stackable             bool             `gorm:"not null;default:false;comment:是否可叠加"`
	ApplicableProductIDs  []uint           `gorm:"serializer:json;type:json;comment:适用商品"`
	ApplicableCategoryIDs []uint           `gorm:"serializer:json;type:json;comment:适用分类"`
	CreatedAt             time.Time        `gorm:"comment:创建时间"`
	UpdatedAt             time.Time        `gorm:"comment:更新时间"`
}

func (DiscountModel) TableName() string {
	return "discounts"
}

// PromotionModel 限时促销
type PromotionModel struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:100;not null;comment:名称"`
	Kind        string          `gorm:"size:20;not null;comment:percentage/fixed_amount/special_price"`
	Value       decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:折扣值"`
	Scope       string          `gorm:"size:20;not null;comment:all/categories/products"`
	ProductIDs  []uint          `gorm:"serializer:json;type:json;comment:适用商品"`
	CategoryIDs []uint          `gorm:"serializer:json;type:json;comment:适用分类"`
	StartDate   time.Time       `gorm:"index:idx_running;comment:开始时间"`
	EndDate     *time.Time      `gorm:"comment:结束时间(空表示长期)"`
	IsActive    bool            `gorm:"not null;comment:是否启用"`
	Status      string          `gorm:"size:20;index:idx_running;not null;comment:状态"`
	Priority    int             `gorm:"not null;default:0;comment:优先级"`
	CreatedAt   time.Time       `gorm:"comment:创建时间"`
	UpdatedAt   time.Time       `gorm:"comment:更新时间"`
}

func (PromotionModel) TableName() string {
	return "promotions"
}

// OrderModel 订单(与OrderItemModel一对多,OrderNo为业务主键)
type OrderModel struct {
	ID             uint             `gorm:"primaryKey"`
	OrderNo        string           `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID         uint             `gorm:"index:idx_user_discount;not null;comment:用户ID"`
	Subtotal       decimal.Decimal  `gorm:"type:decimal(12,2);not null;comment:税前小计"`
	TaxAmount      decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0;comment:税额"`
	ShippingAmount decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0;comment:运费"`
	DiscountAmount decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0;comment:优惠金额"`
	Total          decimal.Decimal  `gorm:"type:decimal(12,2);not null;comment:应付金额"`
	DiscountID     *uint            `gorm:"index:idx_user_discount;comment:优惠ID"`
	DiscountCode   string           `gorm:"size:50;comment:优惠码"`
	Status         int              `gorm:"index;not null;comment:订单状态"`
	CancelReason   string           `gorm:"size:255;comment:取消原因"`
	Items          []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time        `gorm:"index;comment:创建时间"`
	UpdatedAt      time.Time        `gorm:"comment:更新时间"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 订单明细(下单时的价格快照)
type OrderItemModel struct {
	ID            uint            `gorm:"primaryKey"`
	OrderID       uint            `gorm:"index;not null;comment:订单ID"`
	ProductID     uint            `gorm:"index;not null;comment:商品ID"`
	BatchNumber   string          `gorm:"size:64;comment:批号"`
	Quantity      int             `gorm:"not null;comment:数量"`
	OriginalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:原价"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:成交单价"`
	TierID        *uint           `gorm:"comment:阶梯价ID"`
	PromotionID   *uint           `gorm:"comment:促销ID"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;comment:税额"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:税前小计"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:税后小计"`

	DeductedQuantity int `gorm:"not null;default:0;comment:确认时实际扣减数量"`
	BatchDeducted    int `gorm:"not null;default:0;comment:其中从批次扣减数量"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// PurchaseOrderModel 采购单
type PurchaseOrderModel struct {
	ID         uint                     `gorm:"primaryKey"`
	PONumber   string                   `gorm:"uniqueIndex;size:32;not null;comment:采购单号"`
	SupplierID uint                     `gorm:"index;not null;comment:供应商ID"`
	Status     string                   `gorm:"size:20;index;not null;comment:状态"`
	Items      []PurchaseOrderItemModel `gorm:"foreignKey:PurchaseOrderID"`
	ReceivedAt *time.Time               `gorm:"comment:收齐时间"`
	CreatedAt  time.Time                `gorm:"comment:创建时间"`
	UpdatedAt  time.Time                `gorm:"comment:更新时间"`
}

func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItemModel 采购明细
type PurchaseOrderItemModel struct {
	ID               uint            `gorm:"primaryKey"`
	PurchaseOrderID  uint            `gorm:"index;not null;comment:采购单ID"`
	ProductID        uint            `gorm:"index;not null;comment:商品ID"`
	OrderedQuantity  int             `gorm:"not null;comment:采购数量"`
	ReceivedQuantity int             `gorm:"not null;default:0;comment:已收数量"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:采购单价"`
	SellingPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;comment:批次售价"`
	BatchNumber      string          `gorm:"size:64;comment:批号"`
	ExpiryDate       *time.Time      `gorm:"type:date;comment:有效期至"`
}

func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// AuditLogModel 审计日志
type AuditLogModel struct {
	ID         uint                   `gorm:"primaryKey"`
	Action     string                 `gorm:"size:64;index;not null;comment:动作"`
	EntityType string                 `gorm:"size:30;index:idx_entity;not null;comment:实体类型"`
	EntityID   uint                   `gorm:"index:idx_entity;not null;comment:实体ID"`
	Before     map[string]interface{} `gorm:"serializer:json;type:json;comment:变更前"`
	After      map[string]interface{} `gorm:"serializer:json;type:json;comment:变更后"`
	Reason     string                 `gorm:"size:255;comment:原因"`
	Actor      string                 `gorm:"size:64;comment:操作人"`
	TraceID    string                 `gorm:"size:32;comment:链路ID"`
	CreatedAt  time.Time              `gorm:"index;comment:创建时间"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}
