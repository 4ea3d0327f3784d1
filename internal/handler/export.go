package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/util"
)

// ExportHandler streams the user's transactions as CSV or XLSX.
type ExportHandler struct {
	DB *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{DB: db}
}

func (h *ExportHandler) loadTransactions(c *gin.Context, userID uint) ([]models.Transaction, bool) {
	q := h.DB.Preload("Account").Preload("Category").
		Where("user_id = ?", userID)
	if v := c.Query("account_id"); v != "" {
		q = q.Where("account_id = ?", v)
	}
	if v := c.Query("from"); v != "" {
		t, err := util.ParseDate(v)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid from date")
			return nil, false
		}
		q = q.Where("date >= ?", t)
	}
	if v := c.Query("to"); v != "" {
		t, err := util.ParseDate(v)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid to date")
			return nil, false
		}
		q = q.Where("date < ?", t.AddDate(0, 0, 1))
	}

	var txs []models.Transaction
	if err := q.Order("date DESC, id DESC").Find(&txs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to load transactions")
		return nil, false
	}
	return txs, true
}

var exportHeaders = []string{"Date", "Account", "Type", "Category", "Amount (minor units)", "Currency", "Description"}

func exportRow(tx *models.Transaction) []string {
	category := ""
	if tx.Category != nil {
		category = tx.Category.Name
	}
	return []string{
		tx.Date.Format("2006-01-02"),
		tx.Account.Name,
		string(tx.Type),
		category,
		strconv.FormatInt(tx.AmountMinor, 10),
		tx.Currency,
		tx.Description,
	}
}

// ExportCSV serves GET /export/csv.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	txs, ok := h.loadTransactions(c, user.ID)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"",
		time.Now().Format("20060102")))

	// UTF-8 BOM so spreadsheet apps detect the encoding.
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for i := range txs {
		writer.Write(exportRow(&txs[i]))
	}
}

// ExportXLSX serves GET /export/xlsx.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	txs, ok := h.loadTransactions(c, user.ID)
	if !ok {
		return
	}

	f := excelize.NewFile()
	sheetName := "Transactions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create sheet")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, head := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, head)
	}

	for idx := range txs {
		row := idx + 2
		for i, val := range exportRow(&txs[idx]) {
			cell := fmt.Sprintf("%c%d", 'A'+i, row)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 18)
	f.SetColWidth(sheetName, "C", "C", 14)
	f.SetColWidth(sheetName, "D", "D", 18)
	f.SetColWidth(sheetName, "E", "E", 20)
	f.SetColWidth(sheetName, "F", "F", 10)
	f.SetColWidth(sheetName, "G", "G", 30)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to write workbook")
	}
}
