package session

// ToggleCategory flips the expanded flag of a category row.
func (s *Store) ToggleCategory(name string) {
	s.update(func(st *State) {
		if st.Expanded[name] {
			delete(st.Expanded, name)
			return
		}
		st.Expanded[name] = true
	})
}

// OpenModal shows a dialog. Opening one replaces any dialog already open.
func (s *Store) OpenModal(kind ModalKind, payload any) {
	s.update(func(st *State) {
		st.Modal = Modal{Open: true, Kind: kind, Payload: payload}
	})
}

func (s *Store) CloseModal() {
	s.update(func(st *State) {
		st.Modal = Modal{}
	})
}

// ClearError dismisses the current error message.
func (s *Store) ClearError() {
	s.update(func(st *State) {
		st.Error = ""
	})
}
