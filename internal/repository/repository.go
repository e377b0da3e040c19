// Package repository provides data access interfaces and implementations
// for the INSPIRE papers catalog.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL implementations
// following the repository pattern to abstract data persistence from business logic.
//
// # Repository Interfaces
//
//   - SmallPaperRepository: Manages the auxiliary "small papers" collection
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// Database errors are wrapped with context using fmt.Errorf with %w verb.
// Repositories do not translate failures into user-facing messages; that is the
// job of the gateway sitting on top of them. Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist (updates only)
//
// # Usage Pattern
//
//	db, _ := database.New(ctx, cfg, logger)
//	repo := repository.NewPgSmallPaperRepository(db)
package repository

import (
	"github.com/czczc/inspire-papers-viewer/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and transactions.
//
// Repository implementations follow a constructor pattern that accepts DBTX:
//
//	type PgSmallPaperRepository struct {
//	    db DBTX
//	}
//
//	func NewPgSmallPaperRepository(db DBTX) *PgSmallPaperRepository {
//	    return &PgSmallPaperRepository{db: db}
//	}
type DBTX = database.DBTX
