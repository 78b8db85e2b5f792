package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvalidArgumentsMatchesInvalidRequest(t *testing.T) {
	var err error = &InvalidArguments{
		InvalidRequest: InvalidRequest{Code: "552", Message: "Unrecognized option"},
		Args:           []string{"NotAnOption"},
	}

	var ir *InvalidRequest
	require.ErrorAs(t, err, &ir)
	require.Equal(t, "552", ir.Code)

	var ia *InvalidArguments
	require.ErrorAs(t, err, &ia)
	require.Equal(t, []string{"NotAnOption"}, ia.Args)
}

func TestUnsatisfiableRequestMatchesOperationFailed(t *testing.T) {
	var err error = &UnsatisfiableRequest{
		OperationFailed: OperationFailed{Code: "551", Message: "Internal error"},
	}

	var of *OperationFailed
	require.ErrorAs(t, err, &of)
	require.Equal(t, "551", of.Code)
}

func TestSocketClosedMatchesSocketError(t *testing.T) {
	var err error = NewSocketClosed("end of stream", nil)

	var se *SocketError
	require.ErrorAs(t, err, &se)

	var sc *SocketClosed
	require.ErrorAs(t, err, &sc)
}
