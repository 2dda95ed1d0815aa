package newton

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestNewton(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Newton Suite")
}
