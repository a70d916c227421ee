package provisioning

import (
	"context"
)

type Service interface {
	// tells the provisioning endpoint that the account behind nip was paid for
	NotifyRenewal(ctx context.Context, nip string) (*Notification, error)
}
