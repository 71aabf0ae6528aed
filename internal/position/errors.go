package position

import (
	"errors"
	"fmt"
)

// 시뮬레이터와 리스크 정책이 반환하는 에러
var (
	ErrInvalidCapital    = errors.New("initial capital must be positive")
	ErrLengthMismatch    = errors.New("actions and series differ in length")
	ErrInvalidRange      = errors.New("invalid bar range")
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrInvalidRiskPolicy = errors.New("invalid risk policy")
)

// SimulationError는 실패와 그 원인이 된 시뮬레이터 작업을 함께 담습니다
type SimulationError struct {
	Op  string
	Err error
}

// Error는 error 인터페이스를 구현합니다
func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation error [op: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원)
func (e *SimulationError) Unwrap() error {
	return e.Err
}

// NewSimulationError는 SimulationError를 생성합니다
func NewSimulationError(op string, err error) *SimulationError {
	return &SimulationError{Op: op, Err: err}
}
