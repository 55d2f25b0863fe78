package utils

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
)

// ParseEnvConfigList collects PREFIX, PREFIX_0, PREFIX_1, ... env vars.
// The unindexed var is keyed with -1.
func ParseEnvConfigList(prefix string) map[int]string {
	ret := make(map[int]string)

	if v, ok := os.LookupEnv(prefix); ok {
		ret[-1] = v
	}

	r := regexp.MustCompile(fmt.Sprintf(`^%s_(\d+)$`, prefix))
	for _, e := range os.Environ() {
		eq := indexOfEq(e)
		if eq == -1 {
			continue
		}
		m := r.FindStringSubmatch(e[:eq])
		if m == nil {
			continue
		}
		idx, _ := strconv.ParseInt(m[1], 10, 32)
		ret[int(idx)] = e[eq+1:]
	}
	return ret
}

// SortedEnvConfigList returns the values of ParseEnvConfigList in
// stable order, the unindexed value first.
func SortedEnvConfigList(prefix string) []string {
	m := ParseEnvConfigList(prefix)
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	ret := make([]string, 0, len(m))
	for _, k := range keys {
		ret = append(ret, m[k])
	}
	return ret
}

func indexOfEq(e string) int {
	for i := 0; i < len(e); i++ {
		if e[i] == '=' {
			return i
		}
	}
	return -1
}
