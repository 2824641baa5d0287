package connector

import (
	"context"

	"github.com/dvloznov/bank-sync/internal/n26"
)

// n26Vendor adapts *n26.Client to the VendorClient interface.
type n26Vendor struct {
	client *n26.Client
}

// NewN26Vendor wraps an N26 client as a VendorClient.
func NewN26Vendor(client *n26.Client) VendorClient {
	return &n26Vendor{client: client}
}

func (v *n26Vendor) Authenticate(ctx context.Context, login, password string) (VendorSession, error) {
	session, err := v.client.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	return session, nil
}
