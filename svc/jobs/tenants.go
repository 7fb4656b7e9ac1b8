package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/directory"
)

// TenantLister lists tenants. *directory.Service implements it.
type TenantLister interface {
	List(ctx context.Context, q directory.ListQuery) ([]*tenant.Tenant, error)
}

// ForEachTenant calls fn once per active tenant with that tenant as the
// ambient tenant. A failing tenant does not stop the others; all failures
// are returned joined.
func ForEachTenant(ctx context.Context, tenants TenantLister, fn func(ctx context.Context) error) error {
	active := true
	list, err := tenants.List(ctx, directory.ListQuery{Active: &active})
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	var errs []error
	for _, t := range list {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := tenant.Run(ctx, t, fn); err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", t.Code, err))
		}
	}
	return errors.Join(errs...)
}
