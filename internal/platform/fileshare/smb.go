package fileshare

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/hirochachacha/go-smb2"
)

// SMBShare serves files from an SMB file server. The session is established
// lazily on first use and re-established after a transport failure.
type SMBShare struct {
	address  string // host:port of the file server
	user     string
	password string
	share    string // share name the paths are rooted at

	mu      sync.Mutex
	conn    net.Conn
	session *smb2.Session
	mounted *smb2.Share
}

func NewSMBShare(address, user, password, share string) *SMBShare {
	return &SMBShare{
		address:  address,
		user:     user,
		password: password,
		share:    share,
	}
}

// mount returns the mounted share, dialing if needed. Callers must not retain
// the returned handle across requests; a failed call invalidates the session.
func (s *SMBShare) mount(ctx context.Context) (*smb2.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mounted != nil {
		return s.mounted, nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, s.address, err)
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     s.user,
			Password: s.password,
		},
	}

	session, err := dialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: smb session: %v", ErrUnavailable, err)
	}

	mounted, err := session.Mount(s.share)
	if err != nil {
		_ = session.Logoff()
		conn.Close()
		return nil, fmt.Errorf("%w: mount %s: %v", ErrUnavailable, s.share, err)
	}

	s.conn = conn
	s.session = session
	s.mounted = mounted
	return mounted, nil
}

// drop tears down the session so the next call redials.
func (s *SMBShare) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted != nil {
		_ = s.mounted.Umount()
		s.mounted = nil
	}
	if s.session != nil {
		_ = s.session.Logoff()
		s.session = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *SMBShare) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	mounted, err := s.mount(ctx)
	if err != nil {
		return nil, err
	}

	f, err := mounted.Open(toSlash(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		s.drop()
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}
	return f, nil
}

func (s *SMBShare) List(ctx context.Context, path string) ([]Entry, error) {
	mounted, err := s.mount(ctx)
	if err != nil {
		return nil, err
	}

	infos, err := mounted.ReadDir(toSlash(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		s.drop()
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, path, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:  info.Name(),
			IsDir: info.IsDir(),
			Size:  info.Size(),
		})
	}
	return entries, nil
}

// Close releases the SMB session.
func (s *SMBShare) Close() error {
	s.drop()
	return nil
}
