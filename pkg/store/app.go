package store

// AppState is the application wide state: a counter and a free text value.
type AppState struct {
	Count int    `json:"count"`
	Text  string `json:"text"`
}

// App is the store type the CLI wires up.
type App = Store[AppState]

// NewApp returns an App store at the zero state.
func NewApp() *App {
	return New(AppState{})
}

// Increment adds one to the counter.
func Increment(s *App) AppState {
	return s.Update(func(st AppState) AppState {
		st.Count++
		return st
	})
}

// Decrement subtracts one from the counter.
func Decrement(s *App) AppState {
	return s.Update(func(st AppState) AppState {
		st.Count--
		return st
	})
}

// ResetCount sets the counter back to zero and keeps the text.
func ResetCount(s *App) AppState {
	return s.Update(func(st AppState) AppState {
		st.Count = 0
		return st
	})
}

// SetText replaces the text value.
func SetText(s *App, text string) AppState {
	return s.Update(func(st AppState) AppState {
		st.Text = text
		return st
	})
}
