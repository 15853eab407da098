// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"grimm.is/vrouter/internal/errors"
)

// PolicyTableBase is the first table number used for per-device tables.
// The appliance image registers Table_ethN as PolicyTableBase+N.
const PolicyTableBase = 100

// PolicyTableName is the rt_tables name of device's policy table.
func PolicyTableName(device string) string {
	return "Table_" + device
}

// PolicyTableID looks up Table_<device> in the rt_tables file at path and
// falls back to PolicyTableBase+N for ethN devices.
func PolicyTableID(path, device string) (int, error) {
	name := PolicyTableName(device)
	if path != "" {
		if id, ok, err := lookupRtTable(path, name); err != nil {
			return 0, err
		} else if ok {
			return id, nil
		}
	}

	if n, ok := strings.CutPrefix(device, "eth"); ok {
		if idx, err := strconv.Atoi(n); err == nil && idx >= 0 {
			return PolicyTableBase + idx, nil
		}
	}
	return 0, errors.Attr(errors.Errorf(errors.KindNotFound, "no routing table %s", name), "device", device)
}

func lookupRtTable(path, name string) (int, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrapf(err, errors.KindUnavailable, "failed to read %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != name {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, false, errors.Errorf(errors.KindValidation, "%s: bad table id %q for %s", path, fields[0], name)
		}
		return id, true, nil
	}
	return 0, false, scanner.Err()
}
