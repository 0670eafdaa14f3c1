package hotkey

// Fake is a Listener driven by tests.
type Fake struct {
	pressed  chan struct{}
	released chan struct{}
}

func NewFake() *Fake {
	return &Fake{
		pressed:  make(chan struct{}, 1),
		released: make(chan struct{}, 1),
	}
}

func (f *Fake) Register() error           { return nil }
func (f *Fake) Unregister()               {}
func (f *Fake) Pressed() <-chan struct{}  { return f.pressed }
func (f *Fake) Released() <-chan struct{} { return f.released }

func (f *Fake) Press()   { f.pressed <- struct{}{} }
func (f *Fake) Release() { f.released <- struct{}{} }
