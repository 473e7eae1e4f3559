package effects

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/cover"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

// Dispatcher applies or removes a cover effect on a token. The local
// implementation mutates the store directly; the remote implementation
// routes through the privileged action channel for callers without the
// authority to mutate another actor's state.
type Dispatcher interface {
	Apply(ctx context.Context, tokenID string, cat cover.Category) error
	Remove(ctx context.Context, tokenID string, cat cover.Category) error
}

// LocalDispatcher validates against the scene and writes the status store.
// Unknown tokens and invalid categories are silent no-ops: category values
// originate from a closed enum and a vanished token needs no cleanup.
type LocalDispatcher struct {
	Scene *scene.Scene
	Store *StatusStore
}

// Apply records the effect if the token and category are valid.
func (d *LocalDispatcher) Apply(ctx context.Context, tokenID string, cat cover.Category) error {
	if d.Scene.Token(tokenID) == nil {
		return nil
	}
	if !cat.Valid() || cat == cover.None || cat == cover.Full {
		return nil
	}
	return d.Store.Apply(tokenID, cat)
}

// Remove deletes the effect if the token and category are valid.
func (d *LocalDispatcher) Remove(ctx context.Context, tokenID string, cat cover.Category) error {
	if d.Scene.Token(tokenID) == nil {
		return nil
	}
	if !cat.Valid() || cat == cover.None || cat == cover.Full {
		return nil
	}
	return d.Store.Remove(tokenID, cat)
}

// ActionRequest is the wire form of a privileged effect toggle.
type ActionRequest struct {
	Action   string `json:"action"` // "applyCover" or "removeCover"
	TokenID  string `json:"token_id"`
	Category string `json:"category"`
}

// ActionResponse is the wire reply.
type ActionResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

const (
	actionApply  = "applyCover"
	actionRemove = "removeCover"
)

// RemoteDispatcher sends effect toggles over a websocket to a privileged
// peer. The peer re-validates token and category before applying anything,
// so the dispatcher is safe to call with unvalidated identifiers. One
// request is in flight at a time.
type RemoteDispatcher struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialRemote connects a RemoteDispatcher to the action endpoint at url.
func DialRemote(url string) (*RemoteDispatcher, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial action channel %s: %w", url, err)
	}
	return &RemoteDispatcher{conn: conn}, nil
}

// Close shuts the underlying connection.
func (d *RemoteDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.Close()
}

// Apply sends an applyCover action and waits for the reply.
func (d *RemoteDispatcher) Apply(ctx context.Context, tokenID string, cat cover.Category) error {
	return d.roundTrip(ctx, ActionRequest{Action: actionApply, TokenID: tokenID, Category: cat.String()})
}

// Remove sends a removeCover action and waits for the reply.
func (d *RemoteDispatcher) Remove(ctx context.Context, tokenID string, cat cover.Category) error {
	return d.roundTrip(ctx, ActionRequest{Action: actionRemove, TokenID: tokenID, Category: cat.String()})
}

func (d *RemoteDispatcher) roundTrip(ctx context.Context, req ActionRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		d.conn.SetReadDeadline(deadline)
		d.conn.SetWriteDeadline(deadline)
	}
	if err := d.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send %s: %w", req.Action, err)
	}
	var resp ActionResponse
	if err := d.conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("failed to read %s reply: %w", req.Action, err)
	}
	if !resp.OK {
		return fmt.Errorf("%s rejected: %s", req.Action, resp.Error)
	}
	return nil
}

// HandleAction executes one privileged action request against the local
// dispatcher, re-validating everything the remote sent. Invalid category
// names and unknown actions are rejected, never applied.
func HandleAction(ctx context.Context, local *LocalDispatcher, req ActionRequest) ActionResponse {
	cat, ok := cover.ParseCategory(req.Category)
	if !ok {
		return ActionResponse{Error: fmt.Sprintf("unknown cover category %q", req.Category)}
	}
	var err error
	switch req.Action {
	case actionApply:
		err = local.Apply(ctx, req.TokenID, cat)
	case actionRemove:
		err = local.Remove(ctx, req.TokenID, cat)
	default:
		return ActionResponse{Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
	if err != nil {
		return ActionResponse{Error: err.Error()}
	}
	return ActionResponse{OK: true}
}
