package vm

// Limits bounds the VM's fixed-size resources. All of the operand stack,
// frame stack and native-callback table are sized once at construction
// and never grow; exceeding a limit is a typed runtime error, not a
// reallocation. Defaults are overridable through environment variables
// via github.com/caarlos0/env, mirroring the struct-tag configuration
// idiom used elsewhere in the retrieved corpus for small, env-driven
// settings structs.
type Limits struct {
	OperandStackSize int `env:"GS_OPERAND_STACK_SIZE" envDefault:"1024"`
	FrameStackSize   int `env:"GS_FRAME_STACK_SIZE" envDefault:"256"`
	CallbackCapacity int `env:"GS_CALLBACK_CAPACITY" envDefault:"256"`
}

// DefaultLimits returns the struct-tag default values without consulting
// the environment.
func DefaultLimits() Limits {
	return Limits{
		OperandStackSize: 1024,
		FrameStackSize:   256,
		CallbackCapacity: 256,
	}
}
