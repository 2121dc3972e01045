package main

import (
	"fmt"
	"strings"

	"nearaccount/core/types"
)

// yoctoDecimals is the number of decimal places between yoctoNEAR and NEAR.
const yoctoDecimals = 24

// formatNEAR renders a yoctoNEAR decimal string as NEAR with trailing zeros
// trimmed. Non-numeric input is returned unchanged.
func formatNEAR(yocto string) string {
	yocto = strings.TrimSpace(yocto)
	if yocto == "" {
		return "0 NEAR"
	}
	for _, r := range yocto {
		if r < '0' || r > '9' {
			return yocto
		}
	}
	yocto = strings.TrimLeft(yocto, "0")
	if len(yocto) <= yoctoDecimals {
		yocto = strings.Repeat("0", yoctoDecimals-len(yocto)+1) + yocto
	}
	whole := yocto[:len(yocto)-yoctoDecimals]
	frac := strings.TrimRight(yocto[len(yocto)-yoctoDecimals:], "0")
	if frac == "" {
		return whole + " NEAR"
	}
	return whole + "." + frac + " NEAR"
}

func describePermission(p types.AccessKeyPermission) string {
	if p.FunctionCall == nil {
		return "FullAccess"
	}
	fc := p.FunctionCall
	methods := "any method"
	if len(fc.MethodNames) > 0 {
		methods = strings.Join(fc.MethodNames, ",")
	}
	allowance := "unlimited"
	if fc.Allowance != nil {
		allowance = formatNEAR(*fc.Allowance)
	}
	return fmt.Sprintf("FunctionCall(receiver=%s methods=%s allowance=%s)", fc.ReceiverID, methods, allowance)
}
