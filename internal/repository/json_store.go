package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"coachbot/internal/models"
)

type jsonDocument struct {
	Users    map[string]models.User    `json:"users"`
	Payments map[string]models.Payment `json:"payments"`
	Admins   map[string]models.Admin   `json:"admins"`
	Coupons  map[string]models.Coupon  `json:"coupons"`
	Plans    map[string]models.Plan    `json:"plans"`
}

func (d *jsonDocument) ensureMaps() {
	if d.Users == nil {
		d.Users = make(map[string]models.User)
	}
	if d.Payments == nil {
		d.Payments = make(map[string]models.Payment)
	}
	if d.Admins == nil {
		d.Admins = make(map[string]models.Admin)
	}
	if d.Coupons == nil {
		d.Coupons = make(map[string]models.Coupon)
	}
	if d.Plans == nil {
		d.Plans = make(map[string]models.Plan)
	}
}

// JSONFileStore keeps the whole dataset in one JSON document. Reads are
// served from memory; every mutation rewrites the file through a temp file
// and rename, under a single writer lock.
type JSONFileStore struct {
	mu   sync.RWMutex
	path string
	doc  jsonDocument
}

// NewJSONFileStore loads path, creating an empty document when missing.
// Documents written by the earlier bot (numeric ids, naive timestamps) are
// converted on load and rewritten in the current layout on the next change.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	s := &JSONFileStore{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.doc.ensureMaps()
		if err := s.flush(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(raw) > 0 {
		if err := decodeDocument(raw, &s.doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	s.doc.ensureMaps()
	return s, nil
}

// flush must be called with mu held for writing.
func (s *JSONFileStore) flush() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".bot_data-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// mutate applies fn and persists the document. On write failure the
// in-memory state is rolled back to what is on disk.
func (s *JSONFileStore) mutate(ctx context.Context, fn func(d *jsonDocument) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := json.Marshal(&s.doc)
	if err != nil {
		return err
	}
	if err := fn(&s.doc); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		var restored jsonDocument
		if json.Unmarshal(snapshot, &restored) == nil {
			restored.ensureMaps()
			s.doc = restored
		}
		return err
	}
	return nil
}

// ── Users ─────────────────────────────────────────────────────────────

func (s *JSONFileStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.doc.Users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (s *JSONFileStore) PutUser(ctx context.Context, user *models.User) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		putUser(d, user)
		return nil
	})
}

func putUser(d *jsonDocument, user *models.User) {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	d.Users[user.ID] = cloneUser(*user)
}

func (s *JSONFileStore) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.doc.Users))
	for _, u := range s.doc.Users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ── Payments ──────────────────────────────────────────────────────────

func (s *JSONFileStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		if _, exists := d.Payments[payment.ID]; exists {
			return fmt.Errorf("payment %s already exists", payment.ID)
		}
		if payment.CreatedAt.IsZero() {
			payment.CreatedAt = time.Now()
		}
		d.Payments[payment.ID] = clonePayment(*payment)
		return nil
	})
}

func (s *JSONFileStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.doc.Payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clonePayment(p)
	return &out, nil
}

func (s *JSONFileStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		if _, ok := d.Payments[payment.ID]; !ok {
			return ErrNotFound
		}
		d.Payments[payment.ID] = clonePayment(*payment)
		return nil
	})
}

func (s *JSONFileStore) ListPayments(ctx context.Context, status string) ([]models.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Payment
	for _, p := range s.doc.Payments {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *JSONFileStore) CommitPayment(ctx context.Context, user *models.User, payment *models.Payment) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		putUser(d, user)
		if payment.CreatedAt.IsZero() {
			payment.CreatedAt = time.Now()
		}
		d.Payments[payment.ID] = clonePayment(*payment)
		return nil
	})
}

// ── Admins ────────────────────────────────────────────────────────────

func (s *JSONFileStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doc.Admins[userID]
	return ok, nil
}

func (s *JSONFileStore) AddAdmin(ctx context.Context, admin *models.Admin) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		if existing, ok := d.Admins[admin.UserID]; ok {
			*admin = existing
			return nil
		}
		if admin.AddedAt.IsZero() {
			admin.AddedAt = time.Now()
		}
		d.Admins[admin.UserID] = *admin
		return nil
	})
}

func (s *JSONFileStore) RemoveAdmin(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		if _, ok := d.Admins[userID]; !ok {
			return ErrNotFound
		}
		delete(d.Admins, userID)
		return nil
	})
}

func (s *JSONFileStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Admin, 0, len(s.doc.Admins))
	for _, a := range s.doc.Admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

// ── Coupons ───────────────────────────────────────────────────────────

func (s *JSONFileStore) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.doc.Coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *JSONFileStore) PutCoupon(ctx context.Context, coupon *models.Coupon) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		if coupon.CreatedAt.IsZero() {
			coupon.CreatedAt = time.Now()
		}
		d.Coupons[coupon.Code] = *coupon
		return nil
	})
}

func (s *JSONFileStore) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Coupon, 0, len(s.doc.Coupons))
	for _, c := range s.doc.Coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ── Plans ─────────────────────────────────────────────────────────────

func (s *JSONFileStore) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.doc.Plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clonePlan(p)
	return &out, nil
}

func (s *JSONFileStore) PutPlan(ctx context.Context, plan *models.Plan) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		if plan.CreatedAt.IsZero() {
			plan.CreatedAt = time.Now()
		}
		d.Plans[plan.ID] = clonePlan(*plan)
		return nil
	})
}

func (s *JSONFileStore) DeletePlan(ctx context.Context, id string) error {
	return s.mutate(ctx, func(d *jsonDocument) error {
		if _, ok := d.Plans[id]; !ok {
			return ErrNotFound
		}
		delete(d.Plans, id)
		return nil
	})
}

func (s *JSONFileStore) ListPlans(ctx context.Context, userID string) ([]models.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Plan
	for _, p := range s.doc.Plans {
		if p.UserID == userID {
			out = append(out, clonePlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close is a no-op; every mutation is already on disk.
func (s *JSONFileStore) Close() error { return nil }
