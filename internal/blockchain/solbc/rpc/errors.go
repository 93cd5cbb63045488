// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrNoRPCNodes возникает, когда список узлов пуст
	ErrNoRPCNodes = errors.New("no RPC nodes configured")

	// ErrNoActiveClients возникает, когда нет доступных активных клиентов
	ErrNoActiveClients = errors.New("no active RPC clients available")
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

// Error returns the underlying message prefixed with the node URL. The
// method name is kept out of the text so callers matching on wording only
// see what the node said.
func (e *Error) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}

// IsNodeResponse reports whether err is an error answer produced by a
// healthy node, as opposed to a transport failure. Node answers are final:
// asking another node would give the same answer.
func IsNodeResponse(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr)
}

// shouldFailover decides whether a failed call is worth repeating on the
// next node.
func shouldFailover(err error) bool {
	if err == nil || IsNodeResponse(err) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
