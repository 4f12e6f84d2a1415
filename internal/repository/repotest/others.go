package repotest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

// CodeSequenceRepository mimics a sequence with MINVALUE 1.

var _ repository.CodeSequenceRepository = (*CodeSequenceRepository)(nil)

type CodeSequenceRepository struct {
	S *Store
}

func (r *CodeSequenceRepository) WithDB(db.DB) repository.CodeSequenceRepository {
	return r
}

func (r *CodeSequenceRepository) NextValue(context.Context) (int64, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("NextValue"); err != nil {
		return 0, err
	}

	if r.S.seqCalled {
		r.S.seqLast++
	}
	r.S.seqCalled = true
	return r.S.seqLast, nil
}

func (r *CodeSequenceRepository) PeekValue(context.Context) (int64, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("PeekValue"); err != nil {
		return 0, err
	}

	if r.S.seqCalled {
		return r.S.seqLast + 1, nil
	}
	return r.S.seqLast, nil
}

func (r *CodeSequenceRepository) SetLastValue(_ context.Context, last int64) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("SetLastValue"); err != nil {
		return err
	}

	if last < 1 {
		r.S.seqLast, r.S.seqCalled = 1, false
		return nil
	}
	r.S.seqLast, r.S.seqCalled = last, true
	return nil
}

func (r *CodeSequenceRepository) AdvanceTo(_ context.Context, value int64) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("AdvanceTo"); err != nil {
		return err
	}

	last := r.S.seqLast
	if !r.S.seqCalled {
		last--
	}
	if value > last {
		r.S.seqLast, r.S.seqCalled = value, true
	}
	return nil
}

// SupplierRepository

var _ repository.SupplierRepository = (*SupplierRepository)(nil)

type SupplierRepository struct {
	S *Store
}

func (r *SupplierRepository) WithDB(db.DB) repository.SupplierRepository {
	return r
}

func (r *SupplierRepository) ListSuppliers(context.Context) ([]model.Supplier, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("ListSuppliers"); err != nil {
		return nil, err
	}

	suppliers := make([]model.Supplier, 0, len(r.S.suppliers))
	for _, s := range r.S.suppliers {
		suppliers = append(suppliers, s)
	}
	slices.SortFunc(suppliers, func(a, b model.Supplier) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return suppliers, nil
}

func (r *SupplierRepository) CreateSupplier(_ context.Context, name string) (model.Supplier, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("CreateSupplier"); err != nil {
		return model.Supplier{}, err
	}

	for _, s := range r.S.suppliers {
		if s.Name == name {
			return model.Supplier{}, fmt.Errorf("create supplier: %w", apperr.DuplicateSupplierErr)
		}
	}

	r.S.nextSupplierID++
	supplier := model.Supplier{ID: r.S.nextSupplierID, Name: name, CreatedAt: time.Now()}
	r.S.suppliers[supplier.ID] = supplier
	return supplier, nil
}

func (r *SupplierRepository) DeleteSupplier(_ context.Context, id int64) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("DeleteSupplier"); err != nil {
		return err
	}

	if _, ok := r.S.suppliers[id]; !ok {
		return fmt.Errorf("delete supplier: %w", apperr.SupplierNotFoundErr)
	}
	delete(r.S.suppliers, id)
	return nil
}

// UserRepository

var _ repository.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	S *Store
}

func (r *UserRepository) WithDB(db.DB) repository.UserRepository {
	return r
}

func (r *UserRepository) CreateUser(_ context.Context, params repository.CreateUserParams) (model.User, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("CreateUser"); err != nil {
		return model.User{}, err
	}

	for _, u := range r.S.users {
		if u.Username == params.Username {
			return model.User{}, fmt.Errorf("create user: %w", apperr.UsernameTakenErr)
		}
	}

	r.S.nextUserID++
	user := model.User{
		ID:           r.S.nextUserID,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now(),
	}
	r.S.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("GetUserByUsername"); err != nil {
		return model.User{}, err
	}

	for _, u := range r.S.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("get user: %w", apperr.UserNotFoundErr)
}

func (r *UserRepository) GetUserByID(_ context.Context, id int64) (model.User, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("GetUserByID"); err != nil {
		return model.User{}, err
	}

	u, ok := r.S.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("get user: %w", apperr.UserNotFoundErr)
	}
	return u, nil
}

func (r *UserRepository) ListUsers(context.Context) ([]model.User, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("ListUsers"); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(r.S.users))
	for id := int64(1); id <= r.S.nextUserID; id++ {
		if u, ok := r.S.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// OutboxMsgRepository

var _ repository.OutboxMsgRepository = (*OutboxMsgRepository)(nil)

type OutboxMsgRepository struct {
	S *Store
}

func (r *OutboxMsgRepository) WithDB(db.DB) repository.OutboxMsgRepository {
	return r
}

type outboxEntry struct {
	id          uuid.UUID
	params      repository.CreateOutboxMsgParams
	processed   bool
	processedAt time.Time
	err         *string
}

func (r *OutboxMsgRepository) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("CreateOutboxMsg"); err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	r.S.outbox = append(r.S.outbox, outboxEntry{id: id, params: params})
	return nil
}

func (r *OutboxMsgRepository) ListUnprocessedOutboxMsgs(_ context.Context, params repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("ListUnprocessedOutboxMsgs"); err != nil {
		return nil, err
	}

	var msgs []repository.ListUnprocessedOutboxMsgsResult
	for _, e := range r.S.outbox {
		if len(msgs) == int(params.BatchSize) {
			break
		}
		if e.processed {
			continue
		}
		msgs = append(msgs, repository.ListUnprocessedOutboxMsgsResult{
			ID:           e.id,
			Topic:        e.params.Topic,
			Headers:      e.params.Headers,
			Payload:      e.params.Payload,
			PartitionKey: e.params.PartitionKey,
		})
	}
	return msgs, nil
}

func (r *OutboxMsgRepository) BulkUpdateOutboxMsgs(_ context.Context, params repository.BulkUpdateOutboxMsgsParams) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("BulkUpdateOutboxMsgs"); err != nil {
		return err
	}

	for _, item := range params.Items {
		for i := range r.S.outbox {
			if r.S.outbox[i].id == item.ID {
				r.S.outbox[i].processed = true
				r.S.outbox[i].processedAt = time.Now()
				r.S.outbox[i].err = item.Error
			}
		}
	}
	return nil
}

func (r *OutboxMsgRepository) DeleteProcessedOutboxMsgs(_ context.Context, params repository.DeleteProcessedOutboxMsgsParams) (int64, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if err := r.S.fail("DeleteProcessedOutboxMsgs"); err != nil {
		return 0, err
	}

	kept := r.S.outbox[:0]
	var deleted int64
	for _, e := range r.S.outbox {
		if e.processed && e.processedAt.Before(params.ProcessedBefore) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.S.outbox = kept
	return deleted, nil
}

// Repositories bundles fakes sharing one Store.
type Repositories struct {
	Store        *Store
	DB           DB
	Products     *ProductRepository
	CodeSequence *CodeSequenceRepository
	Suppliers    *SupplierRepository
	Users        *UserRepository
	OutboxMsgs   *OutboxMsgRepository
}

func New() Repositories {
	s := NewStore()
	return Repositories{
		Store:        s,
		DB:           DB{S: s},
		Products:     &ProductRepository{S: s},
		CodeSequence: &CodeSequenceRepository{S: s},
		Suppliers:    &SupplierRepository{S: s},
		Users:        &UserRepository{S: s},
		OutboxMsgs:   &OutboxMsgRepository{S: s},
	}
}
