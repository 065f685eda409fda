package repository

import "context"

// Repository is a thin generic gorm store for lookup-style access.
type Repository[T any] interface {
	FindOne(ctx context.Context, query *T) (*T, error)
}
