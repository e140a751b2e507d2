package database

import (
	"context"
	"fmt"
)

// Store bundles all repositories over a shared connection or transaction.
// Lifecycle actions that touch multiple tables run inside InTx so a
// persistence failure rolls the whole transition back.
type Store struct {
	db *DB
	q  DBTX

	Agents         AgentRepository
	Calls          CallRepository
	Communications CommunicationRepository
	Notifications  NotificationRepository
	Appointments   AppointmentRepository
	Doctors        DoctorRepository
	Reviews        ReviewRepository
	Events         EventRepository
	Founders       FounderRepository
	Partners       PartnerRepository
	Photos         PhotoRepository
	AdminUsers     AdminUserRepository
}

// NewStore creates a Store bound to the database connection.
func NewStore(db *DB) *Store {
	return newStore(db, db.DB)
}

func newStore(db *DB, q DBTX) *Store {
	return &Store{
		db:             db,
		q:              q,
		Agents:         &agentRepo{db: db, q: q},
		Calls:          &callRepo{db: db, q: q},
		Communications: &communicationRepo{db: db, q: q},
		Notifications:  &notificationRepo{db: db, q: q},
		Appointments:   &appointmentRepo{db: db, q: q},
		Doctors:        &doctorRepo{db: db, q: q},
		Reviews:        &reviewRepo{db: db, q: q},
		Events:         &eventRepo{db: db, q: q},
		Founders:       &founderRepo{db: db, q: q},
		Partners:       &partnerRepo{db: db, q: q},
		Photos:         &photoRepo{db: db, q: q},
		AdminUsers:     &adminUserRepo{db: db, q: q},
	}
}

// InTx runs fn against a transaction-bound Store. The transaction commits
// when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(newStore(s.db, sqlTx)); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
