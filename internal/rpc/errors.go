package rpc

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/fedfs/internal/types"
)

// JSON-RPC error codes. The -32000 range carries namespace error kinds.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	CodeBackend        = -32000
	CodeNotFound       = -32001
	CodePartialFailure = -32002
	CodeAuthentication = -32003
	CodeReadOnly       = -32004
	CodeUnsupported    = -32005
)

// Error is a JSON-RPC error object
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the structured part of a namespace error
type ErrorData struct {
	Kind  types.Kind          `json:"kind"`
	Op    string              `json:"op,omitempty"`
	Path  string              `json:"path,omitempty"`
	Items []types.ItemFailure `json:"items,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

var codeKinds = map[int]types.Kind{
	CodeBackend:        types.KindBackend,
	CodeNotFound:       types.KindNotFound,
	CodePartialFailure: types.KindPartialFailure,
	CodeAuthentication: types.KindAuthentication,
	CodeReadOnly:       types.KindReadOnly,
	CodeUnsupported:    types.KindUnsupported,
	CodeMethodNotFound: types.KindUnsupported,
	CodeInvalidParams:  types.KindValidation,
	CodeInvalidRequest: types.KindValidation,
	CodeParseError:     types.KindValidation,
	CodeInternal:       types.KindBackend,
}

var kindCodes = map[types.Kind]int{
	types.KindBackend:        CodeBackend,
	types.KindNotFound:       CodeNotFound,
	types.KindPartialFailure: CodePartialFailure,
	types.KindAuthentication: CodeAuthentication,
	types.KindReadOnly:       CodeReadOnly,
	types.KindUnsupported:    CodeUnsupported,
	types.KindValidation:     CodeInvalidParams,
}

// KindForCode maps a wire code to an error kind. Unknown codes are backend failures.
func KindForCode(code int) types.Kind {
	if kind, ok := codeKinds[code]; ok {
		return kind
	}
	return types.KindBackend
}

// CodeForKind maps an error kind to its wire code.
func CodeForKind(kind types.Kind) int {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return CodeInternal
}

// ToTypes converts a wire error into a namespace error for method.
func (e *Error) ToTypes(method string) *types.Error {
	out := &types.Error{Kind: KindForCode(e.Code), Op: method, Message: e.Message}
	if e.Data != nil {
		if e.Data.Kind != types.KindUnknown {
			out.Kind = e.Data.Kind
		}
		if e.Data.Op != "" {
			out.Op = e.Data.Op
		}
		out.Path = e.Data.Path
		out.Items = e.Data.Items
	}
	return out
}

// FromError converts any error into its wire form.
func FromError(err error) *Error {
	var te *types.Error
	if !errors.As(err, &te) {
		return &Error{Code: CodeInternal, Message: err.Error()}
	}

	msg := te.Message
	if msg == "" && te.Err != nil {
		msg = te.Err.Error()
	}
	return &Error{
		Code:    CodeForKind(te.Kind),
		Message: msg,
		Data:    &ErrorData{Kind: te.Kind, Op: te.Op, Path: te.Path, Items: te.Items},
	}
}

// HTTPStatus is the status a server sends with err. Only credential failures
// change it; every other failure travels inside a 200 response.
func HTTPStatus(err *Error) int {
	if err != nil && err.Code == CodeAuthentication {
		return http.StatusUnauthorized
	}
	return http.StatusOK
}
