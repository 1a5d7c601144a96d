// pkg/engine/condition.go
package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownOperator 未知操作符，属于配置错误，不能当作评估为假处理
var ErrUnknownOperator = errors.New("未知操作符")

// Compare 按操作符比较两个数值。相等比较为精确比较，不带容差。
func Compare(operator string, lhs, rhs float64) (bool, error) {
	switch operator {
	case ">=":
		return lhs >= rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">":
		return lhs > rhs, nil
	case "<":
		return lhs < rhs, nil
	case "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownOperator, operator)
}
