package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/apperr"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
	"github.com/strobelightprojects/Nursery-inventory-management/internal/util"

	"go.uber.org/zap"
)

// Registry owns supplier records. Plants point at suppliers weakly by id;
// Delete refuses while any plant still references the supplier, and takes
// the catalog table lock so no plant can attach concurrently.
type Registry struct {
	mu        sync.RWMutex
	suppliers map[int64]models.Supplier
	nextID    int64

	// Bound by NewCatalog. Nil only in registry-only tests, where the
	// reference scan is skipped.
	catalog *Catalog
	persist Persistence
	logger  *zap.Logger
}

// NewRegistry creates an empty supplier registry.
func NewRegistry(persist Persistence) *Registry {
	return &Registry{
		suppliers: make(map[int64]models.Supplier),
		persist:   persist,
		logger:    util.GetLogger(),
	}
}

func validateSupplier(s models.Supplier) error {
	if strings.TrimSpace(s.Name) == "" {
		return apperr.Validation("supplier name is required")
	}
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return apperr.Validation("supplier email is required")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return apperr.Validation("supplier email %q is not valid", email)
	}
	return nil
}

// nameTakenLocked reports whether another supplier already uses the name.
// Caller holds the registry lock.
func (r *Registry) nameTakenLocked(name string, excludeID int64) bool {
	for _, s := range r.suppliers {
		if s.ID != excludeID && s.Name == name {
			return true
		}
	}
	return false
}

// Create validates and inserts a new supplier, assigning its id.
func (r *Registry) Create(ctx context.Context, s models.Supplier) (models.Supplier, error) {
	if err := validateSupplier(s); err != nil {
		return models.Supplier{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTakenLocked(s.Name, 0) {
		return models.Supplier{}, apperr.Conflict("supplier name %q already exists", s.Name)
	}

	r.nextID++
	s.ID = r.nextID

	if err := r.persist.SaveSupplier(ctx, s); err != nil {
		r.nextID--
		return models.Supplier{}, apperr.Unavailable("failed to persist supplier", err)
	}

	r.suppliers[s.ID] = s
	r.logger.Info("Supplier created", zap.Int64("supplier_id", s.ID), zap.String("name", s.Name))
	return s, nil
}

// UpdateSupplierParams holds the mutable supplier fields. Nil means
// unchanged.
type UpdateSupplierParams struct {
	Name          *string
	Email         *string
	ContactPerson *string
	Phone         *string
	Address       *string
}

// Update applies params to an existing supplier.
func (r *Registry) Update(ctx context.Context, id int64, params UpdateSupplierParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.suppliers[id]
	if !ok {
		return apperr.NotFound("supplier %d not found", id)
	}

	if params.Name != nil {
		s.Name = *params.Name
	}
	if params.Email != nil {
		s.Email = *params.Email
	}
	if params.ContactPerson != nil {
		s.ContactPerson = *params.ContactPerson
	}
	if params.Phone != nil {
		s.Phone = *params.Phone
	}
	if params.Address != nil {
		s.Address = *params.Address
	}

	if err := validateSupplier(s); err != nil {
		return err
	}
	if r.nameTakenLocked(s.Name, id) {
		return apperr.Conflict("supplier name %q already exists", s.Name)
	}

	if err := r.persist.SaveSupplier(ctx, s); err != nil {
		return apperr.Unavailable("failed to persist supplier", err)
	}

	r.suppliers[id] = s
	return nil
}

// Delete removes a supplier, failing while any plant references it. The
// reference scan and the removal run as one critical section relative to
// catalog writes: the catalog table write lock is held throughout, so a
// concurrent plant create or edit cannot attach to the dying supplier.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	if r.catalog != nil {
		r.catalog.mu.Lock()
		defer r.catalog.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.suppliers[id]
	if !ok {
		return apperr.NotFound("supplier %d not found", id)
	}

	if r.catalog != nil {
		if n := r.catalog.countBySupplierLocked(id); n > 0 {
			return apperr.Conflict("supplier %q is referenced by %d plants", s.Name, n)
		}
	}

	if err := r.persist.DeleteSupplier(ctx, id); err != nil {
		return apperr.Unavailable("failed to delete supplier", err)
	}

	delete(r.suppliers, id)
	r.logger.Info("Supplier deleted", zap.Int64("supplier_id", id))
	return nil
}

// Get returns a copy of the supplier.
func (r *Registry) Get(id int64) (models.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.suppliers[id]
	if !ok {
		return models.Supplier{}, apperr.NotFound("supplier %d not found", id)
	}
	return s, nil
}

// List returns suppliers in id order.
func (r *Registry) List() []models.Supplier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// exists reports whether the supplier id is present.
func (r *Registry) exists(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.suppliers[id]
	return ok
}

// Restore loads previously persisted suppliers, used at boot.
func (r *Registry) Restore(suppliers []models.Supplier) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range suppliers {
		r.suppliers[s.ID] = s
		if s.ID > r.nextID {
			r.nextID = s.ID
		}
	}
}
