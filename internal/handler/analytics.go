package handler

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// AnalyticsHandler aggregates one month of transactions: daily
// income/expense plus per-category totals. Amounts never cross
// currencies, so the month is always reported in one currency.
type AnalyticsHandler struct {
	DB              *gorm.DB
	DefaultCurrency string
}

func NewAnalyticsHandler(db *gorm.DB, defaultCurrency string) *AnalyticsHandler {
	return &AnalyticsHandler{DB: db, DefaultCurrency: defaultCurrency}
}

type dailyStat struct {
	Date         string `json:"date"`
	IncomeMinor  int64  `json:"income_minor"`
	ExpenseMinor int64  `json:"expense_minor"`
	SavingMinor  int64  `json:"saving_minor"`
	NetMinor     int64  `json:"net_minor"`
}

type categoryStat struct {
	CategoryID   uint   `json:"category_id"`
	CategoryName string `json:"category_name"`
	Kind         string `json:"kind"`
	TotalMinor   int64  `json:"total_minor"`
	Count        int    `json:"count"`
}

// Monthly serves GET /analytics/monthly?month=YYYY-MM&currency=COP.
func (h *AnalyticsHandler) Monthly(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	monthStr := c.Query("month")
	if monthStr == "" {
		monthStr = time.Now().Format("2006-01")
	}
	t, err := time.Parse("2006-01", monthStr)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "month must be YYYY-MM")
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))
	if currency == "" {
		currency = h.DefaultCurrency
	}

	startOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	endOfMonth := startOfMonth.AddDate(0, 1, 0)

	q := h.DB.Preload("Category").
		Where("user_id = ? AND currency = ? AND date >= ? AND date < ?",
			user.ID, currency, startOfMonth, endOfMonth)
	if v := c.Query("account_id"); v != "" {
		q = q.Where("account_id = ?", v)
	}

	var txs []models.Transaction
	if err := q.Order("date ASC").Find(&txs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load transactions")
		return
	}

	dailyMap := make(map[string]*dailyStat)
	catMap := make(map[uint]*categoryStat)
	var totalIncome, totalExpense, totalSaving int64

	for i := range txs {
		tx := &txs[i]
		dateKey := tx.Date.Format("2006-01-02")
		ds, ok := dailyMap[dateKey]
		if !ok {
			ds = &dailyStat{Date: dateKey}
			dailyMap[dateKey] = ds
		}

		switch tx.Type {
		case models.TxIncome:
			ds.IncomeMinor += tx.AmountMinor
			totalIncome += tx.AmountMinor
		case models.TxExpense:
			ds.ExpenseMinor += tx.AmountMinor
			totalExpense += tx.AmountMinor
		case models.TxSaving:
			ds.SavingMinor += tx.AmountMinor
			totalSaving += tx.AmountMinor
		default:
			// Transfers move money between own accounts; they are not
			// income or spending.
			continue
		}
		ds.NetMinor = ds.IncomeMinor - ds.ExpenseMinor - ds.SavingMinor

		if tx.CategoryID != nil && tx.Category != nil {
			cs, ok := catMap[*tx.CategoryID]
			if !ok {
				cs = &categoryStat{
					CategoryID:   *tx.CategoryID,
					CategoryName: tx.Category.Name,
					Kind:         string(tx.Category.Kind),
				}
				catMap[*tx.CategoryID] = cs
			}
			cs.TotalMinor += tx.AmountMinor
			cs.Count++
		}
	}

	daily := make([]dailyStat, 0, len(dailyMap))
	for _, ds := range dailyMap {
		daily = append(daily, *ds)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	categories := make([]categoryStat, 0, len(catMap))
	for _, cs := range catMap {
		categories = append(categories, *cs)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].TotalMinor > categories[j].TotalMinor
	})

	util.Success(c, util.Response{
		"month":    monthStr,
		"currency": currency,
		"totals": gin.H{
			"income_minor":  totalIncome,
			"expense_minor": totalExpense,
			"saving_minor":  totalSaving,
			"net_minor":     totalIncome - totalExpense - totalSaving,
		},
		"daily":      daily,
		"categories": categories,
	})
}
