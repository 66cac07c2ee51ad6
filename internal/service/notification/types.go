package notification

import (
	"context"
	"fmt"
)

// MessageRef 已发送消息的不透明句柄, 可用于原地编辑
type MessageRef int64

type Transport interface {
	Send(ctx context.Context, recipient int64, text string) (MessageRef, error)
	Edit(ctx context.Context, recipient int64, ref MessageRef, text string) error
}

// DeliveryError 单个接收者投递失败, 不影响同轮其他接收者
type DeliveryError struct {
	Recipient int64
	Op        string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery %s to %d: %v", e.Op, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
