package pan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// defaultShareListLimit caps share listing pages.
const defaultShareListLimit = 100

// Share channel constants fixed by the wire protocol: public sharing over
// the netdisk channel.
const (
	shareChannelList = "[0]"
	shareSChannel    = "4"
)

// ShareOptions tunes share link creation.
type ShareOptions struct {
	// ValidityDays limits the link's lifetime; 0 means no expiry.
	ValidityDays int
	// Password protects the link when non-empty.
	Password string
	// Description is attached to the share.
	Description string
}

// CreateShare publishes a share link for one or more remote paths.
func (c *Client) CreateShare(ctx context.Context, paths []string, opts ShareOptions) (*ShareSetResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	pathList, err := json.Marshal(paths)
	if err != nil {
		return nil, fmt.Errorf("pan: encoding path list: %w", err)
	}

	form := url.Values{
		"path_list":    {string(pathList)},
		"period":       {strconv.Itoa(opts.ValidityDays)},
		"channel_list": {shareChannelList},
		"schannel":     {shareSChannel},
		"description":  {opts.Description},
	}

	if opts.Password != "" {
		form.Set("pwd", opts.Password)
	}

	var out ShareSetResponse
	if err := c.postForm(ctx, endpointShare+"?method=set", q, form, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ListShares pages through the account's existing share links.
func (c *Client) ListShares(ctx context.Context, start, limit int) (*ShareListResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultShareListLimit
	}

	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(limit))

	var out ShareListResponse
	if err := c.getJSON(ctx, endpointShare+"?method=list", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CancelShare revokes share links by their identifiers.
func (c *Client) CancelShare(ctx context.Context, shareIDs []string) (*ShareCancelResponse, error) {
	q, err := c.authQuery(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := json.Marshal(shareIDs)
	if err != nil {
		return nil, fmt.Errorf("pan: encoding share id list: %w", err)
	}

	form := url.Values{"shareid_list": {string(ids)}}

	var out ShareCancelResponse
	if err := c.postForm(ctx, endpointShare+"?method=cancel", q, form, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
