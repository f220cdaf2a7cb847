package scanning

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testImage returns a small solid image for conversion tests
func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("PrepareImage", func() {
	var (
		input       []byte
		contentType string
		output      []byte
		mimeType    string
		converted   bool
		err         error
	)

	JustBeforeEach(func() {
		output, mimeType, converted, err = PrepareImage(input, contentType)
	})

	When("the input is already PNG", func() {
		BeforeEach(func() {
			input = encodePNG(testImage())
			contentType = "image/png"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should pass the data through unchanged", func() {
			Expect(converted).To(BeFalse())
			Expect(output).To(Equal(input))
		})

		It("should report the PNG MIME type", func() {
			Expect(mimeType).To(Equal("image/png"))
		})
	})

	When("the input is JPEG", func() {
		BeforeEach(func() {
			input = encodeJPEG(testImage())
			contentType = "image/jpeg"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should convert to PNG", func() {
			Expect(converted).To(BeTrue())
			_, format, decodeErr := image.Decode(bytes.NewReader(output))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the content type is empty", func() {
		BeforeEach(func() {
			input = encodeJPEG(testImage())
			contentType = ""
		})

		It("defaults to JPEG and converts", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))
		})
	})

	When("the content type has odd casing and whitespace", func() {
		BeforeEach(func() {
			input = encodeJPEG(testImage())
			contentType = "  IMAGE/JPEG "
		})

		It("normalizes it and converts", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeTrue())
		})
	})

	When("the input is not an image at all", func() {
		BeforeEach(func() {
			input = []byte("this is a plain text file pretending to be a label")
			contentType = "text/plain"
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the input is a corrupt image", func() {
		BeforeEach(func() {
			data := encodeJPEG(testImage())
			input = data[:8] // truncated past recognition
			contentType = "image/jpeg"
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the input claims to be a PDF but is not", func() {
		BeforeEach(func() {
			input = []byte("not a pdf")
			contentType = "application/pdf"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("PDF")))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("detects the heic ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		data = append(data, make([]byte, 16)...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("rejects short payloads", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})

	It("rejects non-HEIC data", func() {
		Expect(isHEICFormat(encodePNG(testImage()))).To(BeFalse())
	})
})

var _ = Describe("DataURI", func() {
	It("round-trips the original bytes", func() {
		data := []byte{0x01, 0x02, 0xff, 0x00}
		uri := DataURI("image/png", data)

		Expect(uri).To(HavePrefix("data:image/png;base64,"))
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(data))
	})
})
