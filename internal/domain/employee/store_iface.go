package employee

import "context"

// StoreAPI is the persistence contract of the credential store. Every read
// except CodeExists and HighestCode filters out inactive employees.
type StoreAPI interface {
	List(ctx context.Context) ([]Employee, error)
	GetByCode(ctx context.Context, code string) (Employee, error)
	GetByUsername(ctx context.Context, username string) (Employee, error)
	UsernameTaken(ctx context.Context, username, excludeCode string) (bool, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	HighestCode(ctx context.Context, prefix string) (string, error)
	Insert(ctx context.Context, emp Employee) (Employee, error)
	Update(ctx context.Context, emp Employee, passwordHash string) (Employee, error)
	Deactivate(ctx context.Context, code string) error
}
