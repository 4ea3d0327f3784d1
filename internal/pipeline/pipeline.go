// Package pipeline orchestrates transaction writes. Every post runs
// as one serialized section: validation, rule matching, ledger
// application, installment planning, goal and budget bookkeeping, and
// notification dispatch commit together or not at all. Reads bypass
// the pipeline entirely.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/apperr"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/budgets"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/goals"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/installments"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/ledger"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/mailer"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/money"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/notify"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/rules"
)

// maxFutureDate is how far ahead a transaction date may lie; a day of
// slack tolerates client timezones without accepting bookings in the
// distant future.
const maxFutureDate = 24 * time.Hour

// Service runs the posting pipeline against one store.
type Service struct {
	DB         *gorm.DB
	Log        *slog.Logger
	Dispatcher *notify.Dispatcher
	Mail       *mailer.Client
}

func NewService(db *gorm.DB, log *slog.Logger, dispatcher *notify.Dispatcher, mail *mailer.Client) *Service {
	return &Service{DB: db, Log: log, Dispatcher: dispatcher, Mail: mail}
}

// PostInput is the request to record one transaction.
type PostInput struct {
	AccountID   uint
	Type        models.TransactionType
	CategoryID  *uint
	GoalID      *uint
	AmountMinor int64
	Currency    string // defaults to the account currency
	// ExchangeRate converts AmountMinor into the account currency and
	// is required exactly when Currency differs from it.
	ExchangeRate string
	Date         time.Time
	Description  string

	// Credit-card financing; a plan is built only when the account is
	// a liability, the type is expense and NInstallments >= 1.
	NInstallments   int
	InstallmentRate string     // monthly rate as decimal text, default 0
	FirstDueDate    *time.Time // defaults to one month after Date
}

// TransferInput moves money between two accounts of the same user as
// a paired (transfer_out, transfer_in).
type TransferInput struct {
	FromAccountID uint
	ToAccountID   uint
	AmountMinor   int64
	ExchangeRate  string // required when the account currencies differ
	Date          time.Time
	Description   string
}

// Post validates, applies rules and commits one transaction. At most
// once: domain rejections roll the whole section back and the caller
// decides about retries.
func (s *Service) Post(ctx context.Context, userID uint, in PostInput) (*models.Transaction, error) {
	var committed *models.Transaction
	var created []models.Notification
	err := s.DB.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var err error
		committed, created, err = s.postOne(ctx, dbtx, userID, in, "")
		if err != nil {
			return err
		}
		return deadline(ctx)
	})
	if err != nil {
		return nil, err
	}
	s.logCommit(committed)
	s.mailNotifications(created)
	return committed, nil
}

// Transfer posts both legs inside one serialized section spanning the
// two accounts, locked in ascending id order, so the pair is visible
// atomically or not at all.
func (s *Service) Transfer(ctx context.Context, userID uint, in TransferInput) (out, inTx *models.Transaction, err error) {
	if in.FromAccountID == in.ToAccountID {
		return nil, nil, apperr.New(apperr.KindValidation, "transfer needs two distinct accounts")
	}
	var created []models.Notification
	err = s.DB.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		// Deterministic lock order regardless of direction.
		first, second := in.FromAccountID, in.ToAccountID
		if second < first {
			first, second = second, first
		}
		from, err := s.lockAccount(dbtx, userID, first)
		if err != nil {
			return err
		}
		to, err := s.lockAccount(dbtx, userID, second)
		if err != nil {
			return err
		}
		if from.ID != in.FromAccountID {
			from, to = to, from
		}

		var rateText string
		if from.Currency != to.Currency {
			if in.ExchangeRate == "" {
				return apperr.New(apperr.KindCurrencyMismatch,
					"transfer between %s and %s needs an exchange rate", from.Currency, to.Currency)
			}
			rateText = in.ExchangeRate
		}

		group := uuid.NewString()
		var legCreated []models.Notification
		out, legCreated, err = s.postOne(ctx, dbtx, userID, PostInput{
			AccountID:   from.ID,
			Type:        models.TxTransferOut,
			AmountMinor: in.AmountMinor,
			Date:        in.Date,
			Description: in.Description,
		}, group)
		if err != nil {
			return err
		}
		created = append(created, legCreated...)

		// The in leg carries the FX record when currencies differ; the
		// pipeline normalizes it into the target account currency.
		inLeg := PostInput{
			AccountID:   to.ID,
			Type:        models.TxTransferIn,
			AmountMinor: in.AmountMinor,
			Date:        in.Date,
			Description: in.Description,
		}
		if rateText != "" {
			inLeg.Currency = from.Currency
			inLeg.ExchangeRate = rateText
		}
		inTx, legCreated, err = s.postOne(ctx, dbtx, userID, inLeg, group)
		if err != nil {
			return err
		}
		created = append(created, legCreated...)
		return deadline(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	s.logCommit(out)
	s.logCommit(inTx)
	s.mailNotifications(created)
	return out, inTx, nil
}

// Revert deletes a committed transaction, restoring the prior account
// balance, rolling back goal progress and removing the owned
// installment plan. Transfer legs are reverted together.
func (s *Service) Revert(ctx context.Context, userID uint, txID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var tx models.Transaction
		if err := dbtx.Where("id = ? AND user_id = ?", txID, userID).First(&tx).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return s.notFoundOrForbidden(dbtx, &models.Transaction{}, txID, "transaction")
			}
			return fmt.Errorf("load transaction: %w", err)
		}

		legs := []models.Transaction{tx}
		if tx.TransferGroupID != "" {
			legs = nil
			// Both legs, ordered so account locks are acquired ascending.
			if err := dbtx.Where("user_id = ? AND transfer_group_id = ?", userID, tx.TransferGroupID).
				Order("account_id ASC").Find(&legs).Error; err != nil {
				return fmt.Errorf("load transfer legs: %w", err)
			}
		}
		for i := range legs {
			if err := s.revertOne(dbtx, &legs[i]); err != nil {
				return err
			}
		}
		return deadline(ctx)
	})
}

// postOne runs the posting sequence inside an open store transaction.
func (s *Service) postOne(ctx context.Context, dbtx *gorm.DB, userID uint, in PostInput, transferGroup string) (*models.Transaction, []models.Notification, error) {
	if err := deadline(ctx); err != nil {
		return nil, nil, err
	}

	// 1. Shape.
	if in.AmountMinor <= 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "amount must be positive, got %d", in.AmountMinor)
	}
	switch in.Type {
	case models.TxIncome, models.TxExpense, models.TxSaving, models.TxTransferOut, models.TxTransferIn:
	default:
		return nil, nil, apperr.New(apperr.KindValidation, "unknown transaction type %q", in.Type)
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	if date.After(time.Now().Add(maxFutureDate)) {
		return nil, nil, apperr.New(apperr.KindValidation, "transaction date %s is in the future", date.Format("2006-01-02"))
	}

	// 2. Resolve the owning account.
	account, err := s.lockAccount(dbtx, userID, in.AccountID)
	if err != nil {
		return nil, nil, err
	}

	// 3. Normalize to the account currency.
	amount := in.AmountMinor
	var fxCurrency, fxRate string
	var fxOriginal int64
	if in.Currency != "" && in.Currency != account.Currency {
		if _, err := money.ParseCurrency(in.Currency); err != nil {
			return nil, nil, apperr.Wrap(apperr.KindValidation, err, "currency")
		}
		if in.ExchangeRate == "" {
			return nil, nil, apperr.New(apperr.KindCurrencyMismatch,
				"amount in %s posted to a %s account needs an exchange rate", in.Currency, account.Currency)
		}
		rate, err := money.ParseRate(in.ExchangeRate)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.KindValidation, err, "exchange rate")
		}
		fxCurrency, fxRate, fxOriginal = in.Currency, in.ExchangeRate, in.AmountMinor
		amount = money.Convert(in.AmountMinor, rate)
		if amount <= 0 {
			return nil, nil, apperr.New(apperr.KindValidation, "converted amount rounds to zero")
		}
	}

	// 4. Rule matching over an immutable snapshot.
	var ruleSet []models.Rule
	if err := dbtx.Where("user_id = ?", userID).Find(&ruleSet).Error; err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}
	actions := rules.Match(ruleSet, rules.Input{
		Description: in.Description,
		AmountMinor: amount,
		AccountID:   account.ID,
		CategoryID:  in.CategoryID,
		Type:        in.Type,
		Date:        date,
	}, s.Log)
	if actions.Blocked {
		return nil, nil, apperr.New(apperr.KindBlockedByRule, "transaction blocked by rule %d", actions.BlockRuleID)
	}

	// 5. Rule actions that mutate the transaction. A rule target that
	// went stale after save (deleted, foreign or kind-incompatible) is
	// skipped and logged; only the caller's own references stay
	// strict.
	categoryID := in.CategoryID
	if actions.CategoryID != nil {
		if _, err := s.resolveCategory(dbtx, userID, actions.CategoryID, in.Type); err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				return nil, nil, err
			}
			if s.Log != nil {
				s.Log.Warn("skipping rule with unusable category target",
					"rule_id", actions.CategoryRuleID, "category_id", *actions.CategoryID, "err", err)
			}
		} else {
			categoryID = actions.CategoryID
		}
	}
	goalID := in.GoalID
	if actions.GoalID != nil {
		if _, err := s.resolveGoal(dbtx, userID, actions.GoalID, in.Type, account); err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				return nil, nil, err
			}
			if s.Log != nil {
				s.Log.Warn("skipping rule with unusable goal target",
					"rule_id", actions.GoalRuleID, "goal_id", *actions.GoalID, "err", err)
			}
		} else {
			goalID = actions.GoalID
		}
	}

	category, err := s.resolveCategory(dbtx, userID, categoryID, in.Type)
	if err != nil {
		return nil, nil, err
	}
	goal, err := s.resolveGoal(dbtx, userID, goalID, in.Type, account)
	if err != nil {
		return nil, nil, err
	}

	// 6. Ledger.
	if _, err := ledger.Apply(dbtx, account, in.Type, amount); err != nil {
		return nil, nil, err
	}

	tx := &models.Transaction{
		UserID:              userID,
		AccountID:           account.ID,
		CategoryID:          categoryID,
		GoalID:              goalID,
		Type:                in.Type,
		AmountMinor:         amount,
		Currency:            account.Currency,
		Date:                date,
		Description:         in.Description,
		OriginalCurrency:    fxCurrency,
		ExchangeRate:        fxRate,
		OriginalAmountMinor: fxOriginal,
		TransferGroupID:     transferGroup,
	}
	if err := dbtx.Create(tx).Error; err != nil {
		return nil, nil, fmt.Errorf("create transaction: %w", err)
	}

	// 7. Installment plan for financed credit-card purchases.
	if account.Type == models.AccountLiability && in.Type == models.TxExpense && in.NInstallments >= 1 {
		if err := s.buildPlan(dbtx, tx, in); err != nil {
			return nil, nil, err
		}
	}

	var events []notify.Event

	// 8. Goal progress.
	if goal != nil {
		goalEvents, err := goals.Accrue(dbtx, goal, tx)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, goalEvents...)
	}

	// 9. Budget thresholds.
	if in.Type == models.TxExpense && category != nil && category.Kind == models.CategoryExpense {
		budgetEvents, err := budgets.Evaluate(dbtx, tx)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, budgetEvents...)
	}

	if actions.FlagForReview {
		events = append(events, notify.Event{
			UserID: userID,
			Type:   notify.EventReviewRequested,
			Key:    fmt.Sprintf("review:%d:%d", actions.FlagRuleID, tx.ID),
			Args:   map[string]string{"description": tx.Description},
		})
	}

	// 10. Dispatch inside the section; mail happens after commit.
	created, err := s.Dispatcher.Dispatch(dbtx, events)
	if err != nil {
		return nil, nil, err
	}
	return tx, created, nil
}

func (s *Service) buildPlan(dbtx *gorm.DB, tx *models.Transaction, in PostInput) error {
	rate := decimal.Zero
	if in.InstallmentRate != "" {
		var err error
		if rate, err = decimal.NewFromString(in.InstallmentRate); err != nil {
			return apperr.New(apperr.KindValidation, "invalid installment rate %q", in.InstallmentRate)
		}
	}
	firstDue := tx.Date.AddDate(0, 1, 0)
	if in.FirstDueDate != nil {
		firstDue = *in.FirstDueDate
	}
	plan, err := installments.Build(tx.AmountMinor, in.NInstallments, rate, firstDue)
	if err != nil {
		return err
	}

	record := &models.InstallmentPlan{
		TransactionID:       tx.ID,
		NInstallments:       plan.NInstallments,
		MonthlyRate:         rate.String(),
		PrincipalMinor:      plan.PrincipalMinor,
		TotalInterestMinor:  plan.TotalInterestMinor,
		TotalPrincipalMinor: plan.TotalPrincipalMinor,
		TotalAmountMinor:    plan.TotalAmountMinor,
	}
	for _, row := range plan.Schedule {
		record.Installments = append(record.Installments, models.Installment{
			Index:             row.Index,
			DueDate:           row.DueDate,
			PrincipalMinor:    row.PrincipalMinor,
			InterestMinor:     row.InterestMinor,
			BalanceAfterMinor: row.BalanceAfterMinor,
		})
	}
	if err := dbtx.Create(record).Error; err != nil {
		return fmt.Errorf("create installment plan: %w", err)
	}
	tx.InstallmentPlan = record
	return nil
}

func (s *Service) revertOne(dbtx *gorm.DB, tx *models.Transaction) error {
	account, err := s.lockAccount(dbtx, tx.UserID, tx.AccountID)
	if err != nil {
		return err
	}
	if _, err := ledger.Revert(dbtx, account, tx.Type, tx.AmountMinor); err != nil {
		return err
	}

	if tx.GoalID != nil && tx.Type == models.TxSaving {
		var goal models.Goal
		if err := dbtx.Where("id = ? AND user_id = ?", *tx.GoalID, tx.UserID).First(&goal).Error; err != nil {
			return fmt.Errorf("load goal: %w", err)
		}
		cleared, err := goals.Release(dbtx, &goal, tx)
		if err != nil {
			return err
		}
		if cleared {
			if err := s.Dispatcher.Withdraw(dbtx, tx.UserID, goals.CompletionKey(goal.ID)); err != nil {
				return err
			}
		}
	}

	// The plan is owned by the transaction; it leaves with it.
	var plan models.InstallmentPlan
	err = dbtx.Where("transaction_id = ?", tx.ID).First(&plan).Error
	switch {
	case err == nil:
		if err := dbtx.Where("installment_plan_id = ?", plan.ID).Delete(&models.Installment{}).Error; err != nil {
			return fmt.Errorf("delete installments: %w", err)
		}
		if err := dbtx.Delete(&plan).Error; err != nil {
			return fmt.Errorf("delete installment plan: %w", err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("load installment plan: %w", err)
	}

	if err := dbtx.Delete(tx).Error; err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if s.Log != nil {
		s.Log.Info("transaction reverted", "user_id", tx.UserID, "tx_id", tx.ID)
	}
	return nil
}

// lockAccount loads the account under the row lock supported by the
// dialect. SQLite has no SELECT ... FOR UPDATE; there the enclosing
// write transaction is already the serialized section.
func (s *Service) lockAccount(dbtx *gorm.DB, userID, accountID uint) (*models.Account, error) {
	q := dbtx
	if dbtx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account models.Account
	if err := q.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.notFoundOrForbidden(dbtx, &models.Account{}, accountID, "account")
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &account, nil
}

func (s *Service) resolveCategory(dbtx *gorm.DB, userID uint, categoryID *uint, txType models.TransactionType) (*models.Category, error) {
	if categoryID == nil {
		return nil, nil
	}
	var category models.Category
	if err := dbtx.Where("id = ? AND user_id = ?", *categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.notFoundOrForbidden(dbtx, &models.Category{}, *categoryID, "category")
		}
		return nil, fmt.Errorf("load category: %w", err)
	}
	if !kindCompatible(category.Kind, txType) {
		return nil, apperr.New(apperr.KindValidation,
			"category %d of kind %s cannot hold a %s transaction", category.ID, category.Kind, txType)
	}
	return &category, nil
}

func (s *Service) resolveGoal(dbtx *gorm.DB, userID uint, goalID *uint, txType models.TransactionType, account *models.Account) (*models.Goal, error) {
	if goalID == nil {
		return nil, nil
	}
	if txType != models.TxSaving {
		return nil, apperr.New(apperr.KindValidation, "only saving transactions may carry a goal")
	}
	var goal models.Goal
	if err := dbtx.Where("id = ? AND user_id = ?", *goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.notFoundOrForbidden(dbtx, &models.Goal{}, *goalID, "goal")
		}
		return nil, fmt.Errorf("load goal: %w", err)
	}
	if goal.Currency != account.Currency {
		return nil, apperr.New(apperr.KindCurrencyMismatch,
			"goal currency %s differs from account currency %s", goal.Currency, account.Currency)
	}
	return &goal, nil
}

// kindCompatible maps transaction types to the category kind they may
// be filed under.
func kindCompatible(kind models.CategoryKind, txType models.TransactionType) bool {
	switch txType {
	case models.TxIncome:
		return kind == models.CategoryIncome
	case models.TxExpense:
		return kind == models.CategoryExpense
	case models.TxSaving:
		return kind == models.CategorySaving
	case models.TxTransferOut, models.TxTransferIn:
		return kind == models.CategoryTransfer
	}
	return false
}

// notFoundOrForbidden distinguishes a missing entity from one owned by
// another user, without leaking which user owns it.
func (s *Service) notFoundOrForbidden(dbtx *gorm.DB, model any, id uint, what string) error {
	var count int64
	if err := dbtx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s %d: %w", what, id, err)
	}
	if count > 0 {
		return apperr.New(apperr.KindForbidden, "%s %d belongs to another user", what, id)
	}
	return apperr.New(apperr.KindNotFound, "%s %d not found", what, id)
}

// deadline translates an expired request context into the Timeout
// kind before commit.
func deadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindTimeout, err, "request deadline expired")
	}
	return nil
}

func (s *Service) logCommit(tx *models.Transaction) {
	if s.Log == nil || tx == nil {
		return
	}
	s.Log.Info("transaction committed",
		"user_id", tx.UserID, "tx_id", tx.ID, "type", tx.Type,
		"account_id", tx.AccountID, "amount_minor", tx.AmountMinor)
}

// mailNotifications forwards freshly created notifications to the mail
// collaborator. Best-effort and uncancelable once queued: failures are
// logged and never reach the caller.
func (s *Service) mailNotifications(created []models.Notification) {
	if !s.Mail.Enabled() || len(created) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for _, n := range created {
			var user models.User
			if err := s.DB.First(&user, n.UserID).Error; err != nil {
				if s.Log != nil {
					s.Log.Warn("mail skipped, user lookup failed", "user_id", n.UserID, "err", err)
				}
				continue
			}
			if err := s.Mail.Send(ctx, mailer.Message{
				To:      user.Email,
				Subject: n.Title,
				Body:    n.Message,
			}); err != nil && s.Log != nil {
				s.Log.Warn("notification mail failed", "user_id", n.UserID, "event_key", n.EventKey, "err", err)
			}
		}
	}()
}
