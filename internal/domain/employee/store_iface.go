package employee

import "context"

type StoreAPI interface {
	Enroll(ctx context.Context, emp Employee, passwordHash string) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
	Get(ctx context.Context, employeeID string) (Employee, error)
	GetByUserID(ctx context.Context, userID string) (Employee, error)
	Delete(ctx context.Context, employeeID string) (bool, error)
	ListUnnumbered(ctx context.Context) ([]Employee, error)
	AssignNumber(ctx context.Context, employeeID, number string) (bool, error)
}
