package analysis

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "label.jpg"
			data = []byte("label image bytes")
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct path", func() {
				Expect(savedPath).To(Equal(filename))
			})

			It("should save the file to disk", func() {
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("label.jpg", []byte("label image bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns the stored bytes", func() {
				data, err := storage.Get("label.jpg")
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("label image bytes")))
			})
		})

		When("the file does not exist", func() {
			It("returns the error", func() {
				_, err := storage.Get("missing.jpg")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("label.jpg", []byte("label image bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("removes the file", func() {
				Expect(storage.Delete("label.jpg")).To(Succeed())
				Expect(filepath.Join(tmpDir, "label.jpg")).NotTo(BeAnExistingFile())
			})
		})

		When("the file does not exist", func() {
			It("returns the error", func() {
				Expect(storage.Delete("missing.jpg")).NotTo(Succeed())
			})
		})
	})

	Describe("NewLocalStorage", func() {
		It("creates the base directory if needed", func() {
			nested := filepath.Join(tmpDir, "a", "b")
			_, err := NewLocalStorage(nested)
			Expect(err).NotTo(HaveOccurred())

			info, statErr := os.Stat(nested)
			Expect(statErr).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})
})
