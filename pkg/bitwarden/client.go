/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bitwarden

import (
	"context"
	"errors"

	"github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// Client reads folder contents with an unlocked session.
type Client struct {
	opts Options
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	return &Client{opts: opts.withDefaults()}
}

// FetchFolder syncs the local vault copy, resolves folder by name and lists
// its items in CLI order. Any failed step aborts the fetch.
func (c *Client) FetchFolder(ctx context.Context, session *Session, folder string) ([]Item, error) {
	token, err := session.Token()
	if err != nil {
		return nil, err
	}
	log := logger.WithFolder(c.opts.Log, folder)

	if _, err := c.run(ctx, "sync", "sync", "--session", token); err != nil {
		return nil, err
	}

	out, err := c.run(ctx, "get folder", "get", "folder", folder, "--session", token)
	if err != nil {
		return nil, err
	}
	f, err := decodeFolder(out)
	if err != nil {
		return nil, operrors.NewVaultCallFailedError("get folder", out, nil, err)
	}
	if f.ID == "" {
		return nil, operrors.NewVaultCallFailedError("get folder", out, nil, errors.New("folder has no id"))
	}

	out, err = c.run(ctx, "list items", "list", "items", "--folderid", f.ID, "--session", token)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems(out)
	if err != nil {
		return nil, operrors.NewVaultCallFailedError("list items", nil, nil, err)
	}

	log.V(1).Info("listed bitwarden items", logger.KeyItemCount, len(items))
	return items, nil
}

func (c *Client) run(ctx context.Context, step string, args ...string) ([]byte, error) {
	stdout, stderr, err := c.opts.Executor.Execute(ctx, c.opts.Binary, args...)
	if err != nil {
		return nil, operrors.NewVaultCallFailedError(step, stdout, stderr, err)
	}
	return stdout, nil
}
