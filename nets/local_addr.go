package nets

import "net"

// IsLocalAddr reports whether a listen address is reachable only from this machine or a private network.
// An empty host listens on every interface and is not local.
type IsLocalAddr func(addr string) (bool, error)

func (Module) IsLocalAddr() IsLocalAddr {
	return func(addr string) (bool, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return false, err
		}
		if host == "" {
			return false, nil
		}

		ips, err := net.LookupIP(host)
		if err != nil {
			return false, nil
		}

		for _, ip := range ips {
			if ip.IsUnspecified() {
				return false, nil
			}
			if !ip.IsLoopback() && !ip.IsPrivate() {
				return false, nil
			}
		}
		return len(ips) > 0, nil
	}
}
