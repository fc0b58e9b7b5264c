package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
	"github.com/example/freshcorner/internal/utils"
)

const lowStockThreshold = 10

type OrderStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

type RevenueStats struct {
	Total   decimal.Decimal `json:"total"`
	Monthly decimal.Decimal `json:"monthly"`
	Weekly  decimal.Decimal `json:"weekly"`
}

type UserStats struct {
	Total        int64 `json:"total"`
	NewThisMonth int64 `json:"new_this_month"`
}

type ProductStats struct {
	Total      int64 `json:"total"`
	LowStock   int64 `json:"low_stock"`
	OutOfStock int64 `json:"out_of_stock"`
}

type RecentOrder struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
}

type TopProduct struct {
	ProductID    uuid.UUID       `json:"product_id"`
	NameEn       string          `json:"name_en"`
	NameBn       string          `json:"name_bn"`
	TotalSold    int64           `json:"total_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	Orders       OrderStats    `json:"orders"`
	Revenue      RevenueStats  `json:"revenue"`
	Users        UserStats     `json:"users"`
	Products     ProductStats  `json:"products"`
	RecentOrders []RecentOrder `json:"recent_orders"`
	TopProducts  []TopProduct  `json:"top_products"`
}

// UserSummary is a user row in the admin listing.
type UserSummary struct {
	models.User
	TotalOrders int64           `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

// AdminService computes dashboard figures and manages accounts.
type AdminService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAdminService constructs AdminService.
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db, now: time.Now}
}

// Stats computes the dashboard. Revenue and top products ignore cancelled orders.
func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	now := s.now()
	monthAgo := now.AddDate(0, 0, -30)
	weekAgo := now.AddDate(0, 0, -7)

	stats := &DashboardStats{
		Orders:       OrderStats{ByStatus: make(map[string]int64, len(models.OrderStatuses))},
		RecentOrders: []RecentOrder{},
		TopProducts:  []TopProduct{},
	}
	for _, status := range models.OrderStatuses {
		stats.Orders.ByStatus[status] = 0
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, apperr.Unexpected(err, "order stats")
	}
	for _, row := range byStatus {
		stats.Orders.ByStatus[row.Status] = row.Count
		stats.Orders.Total += row.Count
	}

	var revenue struct {
		Total   decimal.NullDecimal
		Monthly decimal.NullDecimal
		Weekly  decimal.NullDecimal
	}
	if err := db.Model(&models.Order{}).
		Select(`SUM(total_amount) AS total,
			SUM(CASE WHEN created_at >= ? THEN total_amount ELSE 0 END) AS monthly,
			SUM(CASE WHEN created_at >= ? THEN total_amount ELSE 0 END) AS weekly`, monthAgo, weekAgo).
		Where("status <> ?", models.OrderCancelled).
		Scan(&revenue).Error; err != nil {
		return nil, apperr.Unexpected(err, "revenue stats")
	}
	stats.Revenue = RevenueStats{
		Total:   orZero(revenue.Total),
		Monthly: orZero(revenue.Monthly),
		Weekly:  orZero(revenue.Weekly),
	}

	if err := db.Model(&models.User{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS new_this_month", monthAgo).
		Where("role = ?", models.RoleCustomer).
		Scan(&stats.Users).Error; err != nil {
		return nil, apperr.Unexpected(err, "user stats")
	}

	if err := db.Model(&models.Product{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN stock_quantity < ? THEN 1 ELSE 0 END), 0) AS low_stock,
			COALESCE(SUM(CASE WHEN stock_quantity = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock`, lowStockThreshold).
		Scan(&stats.Products).Error; err != nil {
		return nil, apperr.Unexpected(err, "product stats")
	}

	var recent []models.Order
	if err := db.Preload("User").
		Order("created_at DESC, id ASC").
		Limit(5).
		Find(&recent).Error; err != nil {
		return nil, apperr.Unexpected(err, "recent orders")
	}
	for _, o := range recent {
		row := RecentOrder{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			Status:      o.Status,
			TotalAmount: o.TotalAmount,
			CreatedAt:   o.CreatedAt,
		}
		if o.User != nil {
			row.CustomerName = o.User.FullName
			row.CustomerPhone = o.User.Phone
		}
		stats.RecentOrders = append(stats.RecentOrders, row)
	}

	if err := db.Raw(`
		SELECT oi.product_id AS product_id, p.name_en AS name_en, p.name_bn AS name_bn,
			SUM(oi.quantity) AS total_sold, SUM(oi.subtotal) AS total_revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.status <> ?
		GROUP BY oi.product_id, p.name_en, p.name_bn
		ORDER BY total_sold DESC, oi.product_id ASC
		LIMIT 5`, models.OrderCancelled).
		Scan(&stats.TopProducts).Error; err != nil {
		return nil, apperr.Unexpected(err, "top products")
	}

	return stats, nil
}

// ListUsers returns accounts newest first with order totals.
func (s *AdminService) ListUsers(ctx context.Context, page, limit int) ([]UserSummary, int64, error) {
	pg := utils.NewPagination(page, limit, 20)
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "count users")
	}

	var users []models.User
	if err := db.Order("created_at DESC, id ASC").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "list users")
	}

	out := make([]UserSummary, 0, len(users))
	if len(users) == 0 {
		return out, total, nil
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var totals []struct {
		UserID      uuid.UUID
		TotalOrders int64
		TotalSpent  decimal.NullDecimal
	}
	if err := db.Model(&models.Order{}).
		Select("user_id, COUNT(*) AS total_orders, SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END) AS total_spent", models.OrderCancelled).
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&totals).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "user order totals")
	}

	byUser := make(map[uuid.UUID]int, len(totals))
	for i, t := range totals {
		byUser[t.UserID] = i
	}
	for _, u := range users {
		summary := UserSummary{User: u, TotalSpent: decimal.Zero}
		if i, ok := byUser[u.ID]; ok {
			summary.TotalOrders = totals[i].TotalOrders
			summary.TotalSpent = orZero(totals[i].TotalSpent)
		}
		out = append(out, summary)
	}

	return out, total, nil
}

// ToggleUser flips a user's active flag.
func (s *AdminService) ToggleUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Update("is_active", gorm.Expr("NOT is_active"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound.WithMessage("user not found")
		}
		return tx.First(&user, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.WithMessage("user not found")
		}
		return nil, apperr.Unexpected(err, "toggle user")
	}
	return &user, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}
