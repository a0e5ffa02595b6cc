package book

import "context"

type Repository interface {
	Load(ctx context.Context) (*Book, error)
	Save(ctx context.Context, b *Book) error
	Backup(ctx context.Context, b *Book) (string, error)
}
