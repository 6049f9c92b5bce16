package repositories

import (
	"database/sql"
	"fmt"

	"weel-backend/internal/models"
)

type CardRepository struct {
	DB *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{DB: db}
}

func (r *CardRepository) ExistsByNumberHash(hash string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM cards WHERE card_number_hashed = $1)`
	var exists bool
	if err := r.DB.QueryRow(q, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("card exists: %w", err)
	}
	return exists, nil
}

// Create — единственная вставка; гонка двух подтверждений по одному
// confirm_id упирается в уникальный индекс по card_number_hashed.
func (r *CardRepository) Create(card *models.Card) error {
	const q = `
		INSERT INTO cards (user_id, card_number_hashed, expiry_date_hashed, is_blacklisted, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(q, card.UserID, card.CardNumberHashed, card.ExpiryDateHashed, card.IsBlacklisted).
		Scan(&card.ID, &card.CreatedAt)
	if err != nil {
		return fmt.Errorf("card create: %w", err)
	}
	return nil
}

func (r *CardRepository) GetByID(id int64) (*models.Card, error) {
	const q = `
		SELECT id, user_id, card_number_hashed, expiry_date_hashed, is_blacklisted, created_at
		FROM cards
		WHERE id = $1
	`
	var c models.Card
	err := r.DB.QueryRow(q, id).Scan(&c.ID, &c.UserID, &c.CardNumberHashed, &c.ExpiryDateHashed, &c.IsBlacklisted, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("card by id: %w", err)
	}
	return &c, nil
}

func (r *CardRepository) SetBlacklisted(id int64, blacklisted bool) error {
	const q = `UPDATE cards SET is_blacklisted = $2 WHERE id = $1`
	if _, err := r.DB.Exec(q, id, blacklisted); err != nil {
		return fmt.Errorf("card blacklist update: %w", err)
	}
	return nil
}

func (r *CardRepository) Delete(id int64) error {
	if _, err := r.DB.Exec(`DELETE FROM cards WHERE id = $1`, id); err != nil {
		return fmt.Errorf("card delete: %w", err)
	}
	return nil
}
