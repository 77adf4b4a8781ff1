package device

import "strings"

// Names is the help text printed for "-d list".
const Names = `Devices can be specified via -d/--device using any of the following
names/mnemonics:

auto - connect automatically to first available device. This is the
       default if nothing is specified.

a0, a1, a2, a3, .. an - connect to /dev/ttyACMn
u0, u1, u2, u3, .. un - connect to /dev/ttyUSBn
c0, c1, c2, c3, .. cn - connect to COMn

id:<serial> - connect to the device with USB serial number <serial>
              (the second entry in the output from the list command)

port:<path> - connect to the device with the given path

rfc2217://<host>:<port> - connect to the device using serial over TCP
                          (e.g. a networked serial port based on RFC2217)

You can also use any valid device name/path.`

// shortcuts maps a mnemonic letter to the device path prefix.
// mpremote itself only knows the first four of each.
var shortcuts = map[byte]string{
	'a': "/dev/ttyACM",
	'u': "/dev/ttyUSB",
	'c': "COM",
}

// ListAliases are the device values that ask for the mnemonic help.
var ListAliases = []string{"list", "l", "devs"}

// ResolveDevice expands shortcuts such as "a0" or "u12". Anything else
// is returned unchanged.
func ResolveDevice(name string) string {
	if len(name) < 2 {
		return name
	}

	prefix, ok := shortcuts[name[0]]
	if !ok {
		return name
	}

	num := name[1:]
	for _, r := range num {
		if r < '0' || r > '9' {
			return name
		}
	}
	return prefix + num
}

// IsListRequest reports whether the device value asks for the help text.
func IsListRequest(name string) bool {
	for _, a := range ListAliases {
		if name == a {
			return true
		}
	}
	return false
}

// NormalizeRemote rewrites a remote path argument of the form ":/x" to
// ":x". Other arguments are returned unchanged.
func NormalizeRemote(arg string) string {
	if strings.HasPrefix(arg, ":/") {
		return ":" + arg[2:]
	}
	return arg
}
