package taxonomy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teranos/taxa/errors"
)

// ObjRef identifies one version of a workspace object.
type ObjRef struct {
	Workspace int64
	Object    int64
	Version   int64
}

// ParseObjRef parses a "workspace:object:version" reference.
func ParseObjRef(s string) (ObjRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ObjRef{}, errors.NewInvalidParams("'obj_ref' must look like workspace:object:version, got %q", s)
	}
	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n <= 0 {
			return ObjRef{}, errors.NewInvalidParams("'obj_ref' component %q of %q is not a positive integer", p, s)
		}
		nums[i] = n
	}
	return ObjRef{Workspace: nums[0], Object: nums[1], Version: nums[2]}, nil
}

func (r ObjRef) String() string {
	return fmt.Sprintf("%d:%d:%d", r.Workspace, r.Object, r.Version)
}
