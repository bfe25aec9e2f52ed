package server

func (s *Server) DirectoryCount() int {
	s.directoriesLock.Lock()
	defer s.directoriesLock.Unlock()
	return len(s.directories)
}
