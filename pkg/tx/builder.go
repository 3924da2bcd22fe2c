package tx

// Builder constructs unsigned transactions incrementally.
type Builder struct {
	inputs  []UTXO
	outputs []Output
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddInput spends a UTXO.
func (b *Builder) AddInput(u UTXO) *Builder {
	b.inputs = append(b.inputs, u)
	return b
}

// AddInputs spends UTXOs in order.
func (b *Builder) AddInputs(us []UTXO) *Builder {
	b.inputs = append(b.inputs, us...)
	return b
}

// AddOutput pays amount to address.
func (b *Builder) AddOutput(amount uint64, address string) *Builder {
	b.outputs = append(b.outputs, Output{Amount: amount, Address: address})
	return b
}

// Build validates the accumulated body and returns it unsigned.
func (b *Builder) Build() (*Unsigned, error) {
	return NewUnsigned(b.inputs, b.outputs)
}
