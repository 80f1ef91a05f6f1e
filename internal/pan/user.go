package pan

import "context"

// UserInfo fetches the authorized account's profile.
func (c *Client) UserInfo(ctx context.Context) (*UserInfoResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	var out UserInfoResponse
	if err := c.getJSON(ctx, endpointNas+"?method=uinfo", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Quota fetches the account's storage usage.
func (c *Client) Quota(ctx context.Context) (*QuotaResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	var out QuotaResponse
	if err := c.getJSON(ctx, endpointQuota, q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
