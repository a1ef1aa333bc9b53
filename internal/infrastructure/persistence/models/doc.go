// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Principles:
// 1. Domain entities carry no GORM tags
// 2. Persistence models contain all GORM annotations and table mappings
// 3. ToDomain / FromDomain convert between the two
// 4. Repositories read and write persistence models only
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - collection.go: customers, debts, installments, payments, payment_allocations
package models
