// Package storage persists categories and purchases through sqlx. Every
// operation checks out its own connection and returns it on all paths.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/accbot/core/logger"
)

// MaxCommentLen is the longest comment, in characters, a purchase may carry.
const MaxCommentLen = 128

// ErrNotFound is returned when a category or purchase id does not exist.
var ErrNotFound = errors.New("storage: not found")

// Category is a spending category.
type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Purchase is one recorded expense. CategoryName is filled on reads.
type Purchase struct {
	ID           int64           `db:"id"`
	CategoryID   int64           `db:"category_id"`
	CategoryName string          `db:"category_name"`
	User         string          `db:"user_name"`
	Amount       decimal.Decimal `db:"amount"`
	Comment      *string         `db:"comment"`
	CreatedAt    time.Time       `db:"created_at"`
}

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	CategoryID int64           `db:"category_id"`
	Name       string          `db:"name"`
	Total      decimal.Decimal `db:"total"`
}

// Store implements the queries used by the bot.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) withConn(ctx context.Context, op string, fn func(conn *sqlx.Conn) error) error {
	start := time.Now()
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("%s: acquire connection: %w", op, err)
	}
	defer conn.Close()

	err = fn(conn)
	if err != nil && !errors.Is(err, ErrNotFound) {
		logger.Error(ctx, "storage", op,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Debug(ctx, "storage", op,
		slog.String("status", "ok"),
		slog.Duration("duration", time.Since(start)),
	)
	return err
}

// Categories returns all categories ordered by id.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.withConn(ctx, "categories.list", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &out, `SELECT id, name FROM categories ORDER BY id`)
	})
	return out, err
}

// Category returns the category with id.
func (s *Store) Category(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := s.withConn(ctx, "categories.get", func(conn *sqlx.Conn) error {
		err := conn.GetContext(ctx, &c, conn.Rebind(`SELECT id, name FROM categories WHERE id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	return c, err
}

// CreateCategory adds a category named name unless one with that exact name
// exists. created reports whether a row was inserted.
func (s *Store) CreateCategory(ctx context.Context, name string) (c Category, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, false, fmt.Errorf("storage: empty category name")
	}
	err = s.withConn(ctx, "categories.create", func(conn *sqlx.Conn) error {
		err := conn.GetContext(ctx, &c, conn.Rebind(`SELECT id, name FROM categories WHERE name = ?`), name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		c.Name = name
		if err := conn.QueryRowxContext(ctx,
			conn.Rebind(`INSERT INTO categories (name) VALUES (?) RETURNING id`), name,
		).Scan(&c.ID); err != nil {
			return err
		}
		created = true
		return nil
	})
	return c, created, err
}

// AddPurchase inserts p and returns it with id and timestamp assigned. The
// timestamp is taken here, in UTC and truncated to seconds.
func (s *Store) AddPurchase(ctx context.Context, p Purchase) (Purchase, error) {
	if err := validComment(p.Comment); err != nil {
		return Purchase{}, err
	}
	p.CreatedAt = s.now().UTC().Truncate(time.Second)
	err := s.withConn(ctx, "purchases.add", func(conn *sqlx.Conn) error {
		err := conn.GetContext(ctx, &p.CategoryName,
			conn.Rebind(`SELECT name FROM categories WHERE id = ?`), p.CategoryID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return conn.QueryRowxContext(ctx, conn.Rebind(`
			INSERT INTO purchases (category_id, user_name, amount, comment, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`),
			p.CategoryID, p.User, p.Amount, p.Comment, p.CreatedAt,
		).Scan(&p.ID)
	})
	if err != nil {
		return Purchase{}, err
	}
	return p, nil
}

const selectPurchase = `
	SELECT p.id, p.category_id, c.name AS category_name, p.user_name,
	       p.amount, p.comment, p.created_at
	FROM purchases p
	JOIN categories c ON c.id = p.category_id`

// Purchase returns the purchase with id.
func (s *Store) Purchase(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := s.withConn(ctx, "purchases.get", func(conn *sqlx.Conn) error {
		err := conn.GetContext(ctx, &p, conn.Rebind(selectPurchase+` WHERE p.id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

// UpdatePurchase replaces category, amount and comment of p.ID.
func (s *Store) UpdatePurchase(ctx context.Context, p Purchase) error {
	if err := validComment(p.Comment); err != nil {
		return err
	}
	return s.withConn(ctx, "purchases.update", func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx, conn.Rebind(`
			UPDATE purchases SET category_id = ?, amount = ?, comment = ?
			WHERE id = ?`),
			p.CategoryID, p.Amount, p.Comment, p.ID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Purchases returns the purchases made on the days from..to inclusive whose
// amount is at least minAmount, oldest first.
func (s *Store) Purchases(ctx context.Context, from, to time.Time, minAmount decimal.Decimal) ([]Purchase, error) {
	lo, hi := dayRange(from, to)
	var out []Purchase
	err := s.withConn(ctx, "purchases.range", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &out, conn.Rebind(selectPurchase+`
			WHERE p.created_at >= ? AND p.created_at < ? AND p.amount >= ?
			ORDER BY p.created_at, p.id`),
			lo, hi, minAmount,
		)
	})
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, err
}

// SumByCategory totals the purchases made on the days from..to inclusive,
// largest total first.
func (s *Store) SumByCategory(ctx context.Context, from, to time.Time) ([]CategoryTotal, error) {
	lo, hi := dayRange(from, to)
	var out []CategoryTotal
	err := s.withConn(ctx, "purchases.sum", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &out, conn.Rebind(`
			SELECT c.id AS category_id, c.name AS name, SUM(p.amount) AS total
			FROM purchases p
			JOIN categories c ON c.id = p.category_id
			WHERE p.created_at >= ? AND p.created_at < ?
			GROUP BY c.id, c.name
			ORDER BY total DESC, c.name`),
			lo, hi,
		)
	})
	return out, err
}

func dayRange(from, to time.Time) (time.Time, time.Time) {
	lo := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	hi := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return lo, hi
}

func validComment(c *string) error {
	if c != nil && len([]rune(*c)) > MaxCommentLen {
		return fmt.Errorf("storage: comment longer than %d characters", MaxCommentLen)
	}
	return nil
}
