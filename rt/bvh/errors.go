package bvh

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

func errVkResult(op string, ret vk.Result) error {
	return fmt.Errorf("bvh: %s failed: vk result %d", op, ret)
}
