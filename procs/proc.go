package procs

// Proc is one step of a state machine over C. It returns the step to run next, or nil when done.
type Proc[C any] interface {
	Run(ctx C) (Proc[C], error)
}

type Func[C any] func(ctx C) (Proc[C], error)

var _ Proc[any] = Func[any](nil)

func (f Func[C]) Run(ctx C) (Proc[C], error) {
	return f(ctx)
}

// Run steps proc until it returns nil or an error.
func Run[C any](ctx C, proc Proc[C]) (err error) {
	for proc != nil {
		proc, err = proc.Run(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}
