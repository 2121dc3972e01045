package rpc

import (
	"strings"

	accerrors "nearaccount/core/errors"
)

var notFoundCauses = map[string]struct{}{
	"UNKNOWN_ACCOUNT":    {},
	"UNKNOWN_ACCESS_KEY": {},
}

// classify maps a node error onto the error taxonomy.
func classify(method string, rpcErr *RPCError) error {
	if rpcErr.Cause != nil {
		if _, ok := notFoundCauses[rpcErr.Cause.Name]; ok {
			return accerrors.NotFound("%s: %v", method, rpcErr)
		}
	}
	if isMissingMessage(rpcErr.dataString()) || isMissingMessage(rpcErr.Message) {
		return accerrors.NotFound("%s: %v", method, rpcErr)
	}
	return accerrors.Provider("%s: %v", method, rpcErr)
}

// classifyLegacy maps an error string embedded in a query result.
func classifyLegacy(method, message string) error {
	if isMissingMessage(message) {
		return accerrors.NotFound("%s: %s", method, message)
	}
	return accerrors.Provider("%s: %s", method, message)
}

func isMissingMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "does not exist")
}
