package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（结算视角：供货价、零售价与库存）
type Product struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                        // 主键
	SupplierID      uint           `gorm:"not null;index" json:"supplier_id"`                           // 供应商ID
	SKU             string         `gorm:"uniqueIndex;not null" json:"sku"`                             // 商品编码
	Name            string         `gorm:"not null" json:"name"`                                        // 商品名称
	Tags            StringArray    `gorm:"type:json" json:"tags"`                                       // 标签数组
	SupplierPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"supplier_price"` // 供货价（佣金计算基准）
	ResellerPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"reseller_price"` // 零售价（由供货价按梯度推导）
	PriceOverridden bool           `gorm:"not null;default:false;index" json:"price_overridden"`        // 零售价是否被运营手工调整（批量重算时跳过）
	StockQuantity   int            `gorm:"not null;default:0" json:"stock_quantity"`                    // 库存数量
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`                         // 是否上架
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                  // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	// 关联
	Supplier *User `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"` // 供应商信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
