package services

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/models"
	"Ashray/repository"
	"Ashray/role"
	"Ashray/util"
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type RestockInput struct {
	Quantity int     `json:"quantity"`
	Supplier string  `json:"supplier"`
	Cost     float64 `json:"cost"`
}

type InventoryService struct {
	items InventoryRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewInventoryService(items InventoryRepository, log *zap.Logger) *InventoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryService{items: items, log: log, now: time.Now}
}

func views(items []models.InventoryItem) []models.InventoryView {
	out := make([]models.InventoryView, 0, len(items))
	for i := range items {
		out = append(out, items[i].View())
	}
	return out
}

// List returns the caller's items, optionally filtered by category and a name search.
func (s *InventoryService) List(ctx context.Context, p *identity.Principal, category, search string) ([]models.InventoryView, error) {
	if err := identity.Authorize(p, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx, repository.InventoryFilter{
		Pharmacy: p.UserID(),
		Category: strings.TrimSpace(category),
		Search:   strings.TrimSpace(search),
	})
	if err != nil {
		return nil, err
	}
	return views(items), nil
}

func (s *InventoryService) Create(ctx context.Context, p *identity.Principal, in models.InventoryInput) (*models.InventoryView, error) {
	if err := identity.Authorize(p, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	item := models.NewInventoryItem(p.UserID(), in, s.now())
	if err := item.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if err := s.items.Insert(ctx, item); err != nil {
		return nil, err
	}
	s.log.Info("inventory item added", zap.String("id", item.ID.Hex()), zap.String("name", item.MedicationName))
	v := item.View()
	return &v, nil
}

// load fetches an item the caller may manage. Admins pass unless ownerOnly.
func (s *InventoryService) load(ctx context.Context, p *identity.Principal, id primitive.ObjectID, ownerOnly bool) (*models.InventoryItem, error) {
	if err := identity.Authorize(p, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound(util.INVENTORY_ITEM_NOT_FOUND)
	}
	if item.Pharmacy != p.UserID() && (ownerOnly || !p.Is(role.Admin)) {
		return nil, apperr.Forbidden(util.NOT_AUTHORIZED_INVENTORY)
	}
	return item, nil
}

func (s *InventoryService) Get(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*models.InventoryView, error) {
	item, err := s.load(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	v := item.View()
	return &v, nil
}

func (s *InventoryService) Update(ctx context.Context, p *identity.Principal, id primitive.ObjectID, in models.InventoryInput) (*models.InventoryView, error) {
	item, err := s.load(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	item.Apply(in, s.now())
	if err := item.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	v := item.View()
	return &v, nil
}

func (s *InventoryService) Delete(ctx context.Context, p *identity.Principal, id primitive.ObjectID) error {
	if _, err := s.load(ctx, p, id, false); err != nil {
		return err
	}
	return s.items.Delete(ctx, id)
}

/*
 * Only the owning pharmacy restocks
 * Quantity must be positive
 * Increment and record the event in one update
 */
func (s *InventoryService) Restock(ctx context.Context, p *identity.Principal, id primitive.ObjectID, in RestockInput) (*models.InventoryView, error) {
	if in.Quantity <= 0 {
		return nil, apperr.Validation(util.INVALID_RESTOCK_QUANTITY)
	}
	if _, err := s.load(ctx, p, id, true); err != nil {
		return nil, err
	}
	item, err := s.items.Restock(ctx, id, models.RestockEntry{
		Date:     s.now(),
		Quantity: in.Quantity,
		Supplier: strings.TrimSpace(in.Supplier),
		Cost:     in.Cost,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("inventory restocked", zap.String("id", id.Hex()), zap.Int("quantity", in.Quantity))
	v := item.View()
	return &v, nil
}

func (s *InventoryService) LowStock(ctx context.Context, p *identity.Principal) ([]models.InventoryView, error) {
	if err := identity.Authorize(p, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	items, err := s.items.LowStock(ctx, p.UserID())
	if err != nil {
		return nil, err
	}
	return views(items), nil
}
