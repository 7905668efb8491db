package subs_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestSubs(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}
