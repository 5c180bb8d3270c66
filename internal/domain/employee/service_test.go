package employee_test

import (
	"context"
	"errors"
	"testing"

	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
	"absensi/internal/testutil"
)

func newService(t *testing.T) (*employee.Service, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	testutil.AddEmployee(t, store, "ADM001", "admin", "", auth.RoleAdmin)
	return employee.NewService(store), store
}

func validInput(username string) employee.CreateInput {
	return employee.CreateInput{
		Name:       "Budi Santoso",
		Username:   username,
		Password:   "password123",
		Position:   "Engineer",
		Department: "IT",
		Email:      "budi@example.com",
	}
}

func TestCreateAssignsSequentialCodes(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	first, err := svc.Create(ctx, validInput("budi"))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if first.EmployeeID != "EMP001" || first.Role != auth.RoleEmployee || !first.Active {
		t.Fatalf("unexpected employee: %+v", first)
	}
	if auth.CheckPassword(first.PasswordHash, "password123") != nil {
		t.Fatalf("password was not hashed correctly")
	}

	testutil.AddEmployee(t, store, "EMP003", "sari", "", auth.RoleEmployee)
	next, err := svc.Create(ctx, validInput("andi"))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if next.EmployeeID != "EMP004" {
		t.Fatalf("expected EMP004, got %s", next.EmployeeID)
	}
}

func TestCreateAdminStillGetsEmployeeCode(t *testing.T) {
	svc, _ := newService(t)
	in := validInput("ops")
	in.Role = "admin"

	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created.EmployeeID != "EMP001" || created.Role != auth.RoleAdmin {
		t.Fatalf("unexpected employee: %+v", created)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	missing := validInput("budi")
	missing.Department = " "
	if _, err := svc.Create(ctx, missing); !errors.Is(err, employee.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	badRole := validInput("budi")
	badRole.Role = "manager"
	if _, err := svc.Create(ctx, badRole); !errors.Is(err, employee.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for role, got %v", err)
	}

	list, _ := store.List(ctx)
	if len(list) != 1 {
		t.Fatalf("invalid input must not create rows, got %d employees", len(list))
	}
}

func TestUsernameCollisionLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	budi, err := svc.Create(ctx, validInput("budi"))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := svc.Create(ctx, validInput("budi")); !errors.Is(err, employee.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	sari, err := svc.Create(ctx, validInput("sari"))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	update := employee.UpdateInput{Name: "Sari", Username: "budi", Position: "QA", Department: "IT"}
	if _, err := svc.Update(ctx, sari.EmployeeID, update); !errors.Is(err, employee.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken on update, got %v", err)
	}

	stored, err := store.GetByCode(ctx, sari.EmployeeID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if stored.Username != "sari" || stored.Position != "Engineer" {
		t.Fatalf("rejected update mutated employee: %+v", stored)
	}
	if got, _ := store.GetByUsername(ctx, "budi"); got.EmployeeID != budi.EmployeeID {
		t.Fatalf("username owner changed: %+v", got)
	}
}

func TestUpdateKeepsPasswordWhenEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	created, err := svc.Create(ctx, validInput("budi"))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	updated, err := svc.Update(ctx, created.EmployeeID, employee.UpdateInput{
		Name: "Budi S.", Username: "budi", Position: "Lead", Department: "IT",
	})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.Name != "Budi S." || updated.Position != "Lead" || updated.Role != auth.RoleEmployee {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if auth.CheckPassword(updated.PasswordHash, "password123") != nil {
		t.Fatalf("empty password must keep the old hash")
	}

	changed, err := svc.Update(ctx, created.EmployeeID, employee.UpdateInput{
		Name: "Budi S.", Username: "budi", Password: "n3w-secret", Position: "Lead", Department: "IT",
	})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if auth.CheckPassword(changed.PasswordHash, "n3w-secret") != nil {
		t.Fatalf("password was not changed")
	}
}

func TestUpdateUnknownEmployee(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Update(context.Background(), "EMP404", employee.UpdateInput{
		Name: "X", Username: "x", Position: "X", Department: "X",
	})
	if !errors.Is(err, employee.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDeactivatesAndProtectsAdmins(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	if err := svc.Delete(ctx, "ADM001"); !errors.Is(err, employee.ErrProtectedAdmin) {
		t.Fatalf("expected ErrProtectedAdmin, got %v", err)
	}

	created, err := svc.Create(ctx, validInput("budi"))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if err := svc.Delete(ctx, created.EmployeeID); err != nil {
		t.Fatalf("delete error: %v", err)
	}

	if _, err := svc.Get(ctx, created.EmployeeID); !errors.Is(err, employee.ErrNotFound) {
		t.Fatalf("deactivated employee must not be found, got %v", err)
	}
	if _, err := svc.AccountByUsername(ctx, "budi"); !errors.Is(err, auth.ErrAccountNotFound) {
		t.Fatalf("deactivated employee must not authenticate, got %v", err)
	}
	if ok, _ := store.CodeExists(ctx, created.EmployeeID); !ok {
		t.Fatalf("soft delete must keep the row")
	}
	if err := svc.Delete(ctx, created.EmployeeID); !errors.Is(err, employee.ErrNotFound) {
		t.Fatalf("second delete expected ErrNotFound, got %v", err)
	}

	// Codes are never reused, and the username becomes available again.
	again, err := svc.Create(ctx, validInput("budi"))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if again.EmployeeID != "EMP002" {
		t.Fatalf("expected EMP002, got %s", again.EmployeeID)
	}
}

func TestGetRejectsMalformedCodes(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Get(context.Background(), "../etc/passwd"); !errors.Is(err, employee.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, err := svc.Exists(context.Background(), "ADM001")
	if err != nil || !ok {
		t.Fatalf("expected ADM001 to exist: %v %v", ok, err)
	}
}
