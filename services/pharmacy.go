package services

import (
	"Ashray/identity"
	"Ashray/models"
	"Ashray/repository"
	"Ashray/role"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const recentPharmacyPrescriptions = 10

type PharmacyStats struct {
	TotalPrescriptions int64            `json:"totalPrescriptions"`
	ByStatus           map[string]int64 `json:"byStatus"`
	Pending            int64            `json:"pendingPrescriptions"`
	Ready              int64            `json:"readyPrescriptions"`
	TotalInventory     int64            `json:"totalInventory"`
	LowStockItems      int              `json:"lowStockItems"`
}

type PharmacyDashboard struct {
	Stats               PharmacyStats          `json:"stats"`
	RecentPrescriptions []models.Prescription  `json:"recentPrescriptions"`
	LowStockItems       []models.InventoryView `json:"lowStockItems"`
}

type PharmacyService struct {
	prescriptions PrescriptionRepository
	inventory     InventoryRepository
	rx            *PrescriptionService
	log           *zap.Logger
}

func NewPharmacyService(prescriptions PrescriptionRepository, inventory InventoryRepository, rx *PrescriptionService, log *zap.Logger) *PharmacyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PharmacyService{prescriptions: prescriptions, inventory: inventory, rx: rx, log: log}
}

/*
 * Prescription counts by status for this pharmacy
 * Inventory size and the items at or below their reorder level
 * The latest assigned prescriptions
 */
func (s *PharmacyService) Dashboard(ctx context.Context, p *identity.Principal) (*PharmacyDashboard, error) {
	if err := identity.Authorize(p, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	id := p.UserID()
	counts, err := s.prescriptions.CountByStatus(ctx, &id)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	inventoryTotal, err := s.inventory.Count(ctx, id)
	if err != nil {
		return nil, err
	}
	low, err := s.inventory.LowStock(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.prescriptions.List(ctx, repository.PrescriptionFilter{Pharmacy: &id, Limit: recentPharmacyPrescriptions})
	if err != nil {
		return nil, err
	}
	return &PharmacyDashboard{
		Stats: PharmacyStats{
			TotalPrescriptions: total,
			ByStatus:           counts,
			Pending:            counts[models.StatusPending],
			Ready:              counts[models.StatusReady],
			TotalInventory:     inventoryTotal,
			LowStockItems:      len(low),
		},
		RecentPrescriptions: recent,
		LowStockItems:       views(low),
	}, nil
}

// Pending is the shared queue of prescriptions no pharmacy has picked up yet.
func (s *PharmacyService) Pending(ctx context.Context, p *identity.Principal) ([]models.Prescription, error) {
	if err := identity.Authorize(p, role.Pharmacy, role.Admin); err != nil {
		return nil, err
	}
	return s.prescriptions.List(ctx, repository.PrescriptionFilter{Status: models.StatusPending})
}

// Process claims a prescription for the caller and marks it processing.
func (s *PharmacyService) Process(ctx context.Context, p *identity.Principal, id primitive.ObjectID) (*models.Prescription, error) {
	return s.rx.UpdateStatus(ctx, p, id, models.StatusProcessing)
}
