package schedule

import "context"

type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// TaskFunc 函数适配器
type TaskFunc struct {
	F     func(ctx context.Context) error
	Label string
}

func (t TaskFunc) Run(ctx context.Context) error {
	return t.F(ctx)
}

func (t TaskFunc) Name() string {
	return t.Label
}
