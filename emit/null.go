package emit

// NullEmitter discards every event. Grounded in the teacher's
// emit.NullEmitter (graph/emit/null.go).
type NullEmitter struct{}

func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

func (n *NullEmitter) Emit(Event) {}
