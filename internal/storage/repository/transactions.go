package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// SaveTransaction добавляет запись в историю подписки.
func (s *Storage) SaveTransaction(ctx context.Context, tx models.SubscriptionTransaction) error {
	const op = "storage.SaveTransaction"

	query := `INSERT INTO subscription_transactions
			      (id, subscription_id, customer_id, plan_id, kind, amount, currency, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.DB.ExecContext(ctx, query,
		tx.ID, tx.SubscriptionID, tx.CustomerID, tx.PlanID, string(tx.Kind),
		tx.Amount, tx.Currency, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTransactions возвращает историю клиента в хронологическом порядке.
func (s *Storage) ListTransactions(ctx context.Context, customerID string) ([]models.SubscriptionTransaction, error) {
	const op = "storage.ListTransactions"

	query := `SELECT id, subscription_id, customer_id, plan_id, kind, amount, currency, created_at
			  FROM subscription_transactions
			  WHERE customer_id = $1
			  ORDER BY created_at, id`
	rows, err := s.DB.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []models.SubscriptionTransaction
	for rows.Next() {
		var (
			tx   models.SubscriptionTransaction
			kind string
		)
		if err := rows.Scan(&tx.ID, &tx.SubscriptionID, &tx.CustomerID, &tx.PlanID, &kind,
			&tx.Amount, &tx.Currency, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tx.Kind = models.TransactionKind(kind)
		res = append(res, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
