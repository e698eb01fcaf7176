package services

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"chatroom-service/internal/observability"
	"chatroom-service/internal/repositories"
)

// ReconcileReport lists rooms on which the document and realtime stores disagree.
type ReconcileReport struct {
	MissingMarkers  []string `json:"missingMarkers"`
	OrphanedMarkers []string `json:"orphanedMarkers"`
	OwnerMismatches []string `json:"ownerMismatches"`
}

// Consistent reports whether the scan found nothing.
func (r ReconcileReport) Consistent() bool {
	return len(r.MissingMarkers) == 0 && len(r.OrphanedMarkers) == 0 && len(r.OwnerMismatches) == 0
}

// Reconciler compares room documents against ownership markers. It never
// writes; repairs are left to an operator.
type Reconciler struct {
	rooms    repositories.RoomRepository
	realtime repositories.RealtimeRepository
}

// NewReconciler constructs a Reconciler.
func NewReconciler(rooms repositories.RoomRepository, realtime repositories.RealtimeRepository) *Reconciler {
	return &Reconciler{rooms: rooms, realtime: realtime}
}

// Scan runs one comparison of both stores.
func (r *Reconciler) Scan(ctx context.Context) (ReconcileReport, error) {
	ctx, span := tracer.Start(ctx, "rooms.reconcile")
	defer span.End()

	docs, err := r.rooms.ListRooms(ctx)
	if err != nil {
		return ReconcileReport{}, storeError("list rooms", err)
	}
	markerIDs, err := r.realtime.ListRoomIDs(ctx)
	if err != nil {
		return ReconcileReport{}, storeError("list ownership markers", err)
	}

	markers := make(map[string]struct{}, len(markerIDs))
	for _, id := range markerIDs {
		markers[id] = struct{}{}
	}

	report := ReconcileReport{MissingMarkers: []string{}, OrphanedMarkers: []string{}, OwnerMismatches: []string{}}
	seen := make(map[string]struct{}, len(docs))
	for _, room := range docs {
		seen[room.ID] = struct{}{}
		if _, ok := markers[room.ID]; !ok {
			report.MissingMarkers = append(report.MissingMarkers, room.ID)
			continue
		}
		ownership, err := r.realtime.GetOwnership(ctx, room.ID)
		if err != nil {
			return ReconcileReport{}, storeError("read ownership marker", err)
		}
		if ownership.RoomOwner != room.OwnerID {
			report.OwnerMismatches = append(report.OwnerMismatches, room.ID)
		}
	}
	for id := range markers {
		if _, ok := seen[id]; !ok {
			report.OrphanedMarkers = append(report.OrphanedMarkers, id)
		}
	}
	sort.Strings(report.MissingMarkers)
	sort.Strings(report.OrphanedMarkers)
	sort.Strings(report.OwnerMismatches)

	observability.SetReconcileFindings("missing_marker", len(report.MissingMarkers))
	observability.SetReconcileFindings("orphaned_marker", len(report.OrphanedMarkers))
	observability.SetReconcileFindings("owner_mismatch", len(report.OwnerMismatches))
	return report, nil
}

// Run scans every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Scan(ctx)
			if err != nil {
				log.Error().Err(err).Msg("reconcile scan failed")
				continue
			}
			if !report.Consistent() {
				log.Warn().
					Strs("missing_markers", report.MissingMarkers).
					Strs("orphaned_markers", report.OrphanedMarkers).
					Strs("owner_mismatches", report.OwnerMismatches).
					Msg("room stores disagree")
			}
		}
	}
}
