// Package catalog holds the static tables the app is configured with: class
// levels and subjects of the Indonesian curriculum, purchasable token packages,
// and canned example prompts used when the prompt generator is unavailable.
package catalog

import "strings"

var ClassLevels = []string{
	"SD Kelas 1",
	"SD Kelas 2",
	"SD Kelas 3",
	"SD Kelas 4",
	"SD Kelas 5",
	"SD Kelas 6",
	"SMP Kelas 7",
	"SMP Kelas 8",
	"SMP Kelas 9",
	"SMA Kelas 10",
	"SMA Kelas 11",
	"SMA Kelas 12",
}

// SubjectsByTier maps a school tier (the first word of a class level) to its
// subject list.
var SubjectsByTier = map[string][]string{
	"SD": {
		"Matematika",
		"IPA (Sains)",
		"IPS (Sejarah, Geografi)",
		"Bahasa Indonesia",
		"Bahasa Inggris",
		"Pendidikan Pancasila (PPKn)",
		"Lainnya",
	},
	"SMP": {
		"Matematika",
		"IPA Terpadu (Fisika, Biologi)",
		"IPS Terpadu (Sejarah, Geografi, Ekonomi)",
		"Bahasa Indonesia",
		"Bahasa Inggris",
		"Pendidikan Pancasila (PPKn)",
		"Informatika",
		"Seni Budaya",
		"Lainnya",
	},
	"SMA": {
		"Matematika (Wajib)",
		"Matematika (Peminatan)",
		"Fisika",
		"Kimia",
		"Biologi",
		"Geografi",
		"Sejarah",
		"Sosiologi",
		"Ekonomi",
		"Bahasa Indonesia",
		"Bahasa Inggris",
		"Informatika",
		"Lainnya",
	},
}

// Tier extracts the school tier from a class level, e.g. "SMP Kelas 8" -> "SMP".
func Tier(classLevel string) string {
	fields := strings.Fields(classLevel)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func ValidClassLevel(classLevel string) bool {
	for _, l := range ClassLevels {
		if l == classLevel {
			return true
		}
	}
	return false
}

// SubjectsForLevel returns the subjects available for a class level, or nil for
// an unknown level.
func SubjectsForLevel(classLevel string) []string {
	return SubjectsByTier[Tier(classLevel)]
}

func ValidSubject(classLevel, subject string) bool {
	for _, s := range SubjectsForLevel(classLevel) {
		if s == subject {
			return true
		}
	}
	return false
}

// Icons the UI can render next to an example prompt. The prompt generator is
// constrained to this set.
var Icons = []string{"Book", "FlaskConical", "History", "Landmark", "Sparkles"}

func ValidIcon(name string) bool {
	for _, icon := range Icons {
		if icon == name {
			return true
		}
	}
	return false
}

type ExamplePrompt struct {
	Icon   string `json:"icon"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// GeneralPrompts is the last-resort fallback when no tier or subject match exists.
var GeneralPrompts = []ExamplePrompt{
	{Icon: "Book", Title: "Buatkan soal esai", Prompt: "Buatkan soal esai tentang sejarah proklamasi kemerdekaan Indonesia."},
	{Icon: "FlaskConical", Title: "Jelaskan konsep sulit", Prompt: "Jelaskan konsep relativitas dengan bahasa yang mudah dipahami."},
	{Icon: "Landmark", Title: "Beri ide proyek", Prompt: "Beri saya 3 ide proyek tentang keragaman budaya di Indonesia."},
	{Icon: "History", Title: "Buat ringkasan", Prompt: "Ringkas bab 5 buku paket Sejarah tentang pendudukan Jepang."},
}

// PromptsByTier holds curated example prompts per tier and subject, with an
// "Umum" entry per tier as the in-tier fallback.
var PromptsByTier = map[string]map[string][]ExamplePrompt{
	"SD": {
		"Matematika": {
			{Icon: "Book", Title: "Soal cerita perkalian", Prompt: "Buatkan 5 soal cerita tentang perkalian untuk anak kelas 3 SD."},
			{Icon: "FlaskConical", Title: "Jelaskan pecahan", Prompt: "Jelaskan apa itu bilangan pecahan dengan contoh kue."},
			{Icon: "Landmark", Title: "Game matematika", Prompt: "Beri ide permainan untuk belajar penjumlahan di kelas 1 SD."},
			{Icon: "History", Title: "Ringkas bangun datar", Prompt: "Sebutkan dan jelaskan ciri-ciri persegi, lingkaran, dan segitiga."},
		},
		"IPA (Sains)": {
			{Icon: "Book", Title: "Siklus hidup kupu-kupu", Prompt: "Jelaskan tahapan siklus hidup kupu-kupu."},
			{Icon: "FlaskConical", Title: "Mengapa pelangi muncul?", Prompt: "Jelaskan mengapa pelangi bisa muncul setelah hujan."},
			{Icon: "Landmark", Title: "Proyek tanam kecambah", Prompt: "Buat langkah-langkah untuk proyek menanam biji kacang hijau di kapas."},
			{Icon: "History", Title: "Kelompokkan hewan", Prompt: "Kelompokkan hewan berikut berdasarkan makanannya: singa, sapi, beruang, kelinci."},
		},
		"Umum": {
			{Icon: "Book", Title: "Buat puisi", Prompt: "Buatkan puisi pendek tentang ibu untuk anak SD."},
			{Icon: "FlaskConical", Title: "Jelaskan gotong royong", Prompt: "Apa arti penting dari gotong royong di masyarakat?"},
			{Icon: "Landmark", Title: "Tugas PPKn", Prompt: "Sebutkan 3 contoh sikap yang sesuai dengan sila pertama Pancasila."},
			{Icon: "History", Title: "Cerita fabel", Prompt: "Buatkan cerita fabel singkat tentang kancil dan buaya."},
		},
	},
	"SMP": {
		"Matematika": {
			{Icon: "Book", Title: "Soal aljabar", Prompt: "Buatkan 3 soal persamaan linear dua variabel dan cara menyelesaikannya."},
			{Icon: "FlaskConical", Title: "Teorema Pythagoras", Prompt: "Jelaskan Teorema Pythagoras dan berikan contoh soalnya."},
			{Icon: "Landmark", Title: "Proyek bangun ruang", Prompt: "Beri ide proyek membuat jaring-jaring kubus dan balok dari karton."},
			{Icon: "History", Title: "Ringkas materi statistik", Prompt: "Apa perbedaan antara mean, median, dan modus? Berikan contohnya."},
		},
		"IPA Terpadu (Fisika, Biologi)": {
			{Icon: "Book", Title: "Sistem pernapasan", Prompt: "Jelaskan organ-organ dalam sistem pernapasan manusia beserta fungsinya."},
			{Icon: "FlaskConical", Title: "Konsep fotosintesis", Prompt: "Jelaskan proses fotosintesis pada tumbuhan dengan bahasa sederhana."},
			{Icon: "Landmark", Title: "Percobaan tekanan udara", Prompt: "Rancang sebuah percobaan sederhana untuk membuktikan adanya tekanan udara."},
			{Icon: "History", Title: "Rantai makanan", Prompt: "Gambarkan contoh rantai makanan di ekosistem sawah."},
		},
		"Umum": {
			{Icon: "Book", Title: "Debat tentang media sosial", Prompt: "Berikan 3 argumen pro dan 3 argumen kontra tentang penggunaan media sosial bagi remaja."},
			{Icon: "FlaskConical", Title: "Pemanasan global", Prompt: "Apa penyebab utama pemanasan global dan apa dampaknya bagi bumi?"},
			{Icon: "Landmark", Title: "Ide mading sekolah", Prompt: "Beri 5 ide tema untuk mading sekolah yang menarik."},
			{Icon: "History", Title: "Perang Diponegoro", Prompt: "Ringkas secara singkat latar belakang terjadinya Perang Diponegoro."},
		},
	},
	"SMA": {
		"Fisika": {
			{Icon: "Book", Title: "Soal Hukum Newton", Prompt: "Buatkan soal essay mengenai penerapan Hukum II Newton dalam kehidupan sehari-hari."},
			{Icon: "FlaskConical", Title: "Konsep dualisme gelombang-partikel", Prompt: "Jelaskan konsep dualisme gelombang-partikel pada cahaya."},
			{Icon: "Landmark", Title: "Proyek roket air", Prompt: "Berikan rancangan dan prinsip fisika di balik pembuatan roket air sederhana."},
			{Icon: "History", Title: "Ringkas teori relativitas khusus", Prompt: "Apa saja postulat utama dalam teori relativitas khusus Einstein?"},
		},
		"Kimia": {
			{Icon: "Book", Title: "Penyetaraan reaksi redoks", Prompt: "Setarakan reaksi redoks berikut: MnO4- + C2O4^2- -> Mn^2+ + CO2."},
			{Icon: "FlaskConical", Title: "Jelaskan ikatan hidrogen", Prompt: "Apa itu ikatan hidrogen dan mengapa ia penting? Berikan contoh senyawanya."},
			{Icon: "Landmark", Title: "Praktikum laju reaksi", Prompt: "Rancang percobaan untuk mengetahui faktor-faktor yang memengaruhi laju reaksi."},
			{Icon: "History", Title: "Model atom", Prompt: "Jelaskan perkembangan model atom dari Dalton hingga mekanika kuantum."},
		},
		"Sejarah": {
			{Icon: "Book", Title: "Analisis dampak Revolusi Industri", Prompt: "Buatlah analisis mengenai dampak sosial dan ekonomi dari Revolusi Industri di Eropa."},
			{Icon: "FlaskConical", Title: "Bandingkan Orde Lama dan Orde Baru", Prompt: "Bandingkan kebijakan politik luar negeri Indonesia pada masa Orde Lama dan Orde Baru."},
			{Icon: "Landmark", Title: "Ide riset sejarah lokal", Prompt: "Berikan 3 ide penelitian sejarah yang bisa dilakukan di lingkungan sekitar tempat tinggalku."},
			{Icon: "History", Title: "Peran Indonesia di GNB", Prompt: "Jelaskan peran penting Indonesia dalam pendirian Gerakan Non-Blok."},
		},
		"Umum": {
			{Icon: "Book", Title: "Tulis esai argumentatif", Prompt: "Tulis sebuah esai argumentatif dengan tema 'Pentingnya Literasi Digital di Era Informasi'."},
			{Icon: "FlaskConical", Title: "Analisis SWOT diri", Prompt: "Bagaimana cara melakukan analisis SWOT (Strengths, Weaknesses, Opportunities, Threats) untuk pengembangan diri?"},
			{Icon: "Landmark", Title: "Proposal kegiatan OSIS", Prompt: "Buatkan kerangka proposal untuk kegiatan 'Pekan Olahraga dan Seni' di sekolah."},
			{Icon: "History", Title: "Isu kesehatan mental", Prompt: "Jelaskan pentingnya menjaga kesehatan mental bagi siswa SMA dan cara-caranya."},
		},
	},
}

// FallbackPrompts resolves the curated prompts for a class level and subject,
// falling back to the tier's "Umum" set and then the general set.
func FallbackPrompts(classLevel, subject string) []ExamplePrompt {
	if bySubject, ok := PromptsByTier[Tier(classLevel)]; ok {
		if prompts, ok := bySubject[subject]; ok {
			return prompts
		}
		if prompts, ok := bySubject["Umum"]; ok {
			return prompts
		}
	}
	return GeneralPrompts
}

// TokenPackage is a purchasable bundle of question tokens. Price is in the
// smallest currency unit (rupiah).
type TokenPackage struct {
	ID          string `json:"id"`
	Tokens      int    `json:"tokens"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

var TokenPackages = []TokenPackage{
	{ID: "starter", Tokens: 100, Price: 10000, Description: "Paket Hemat: 100 token pertanyaan"},
	{ID: "student", Tokens: 250, Price: 25000, Description: "Paket Pelajar: 250 token pertanyaan"},
	{ID: "pro", Tokens: 600, Price: 50000, Description: "Paket Juara: 600 token pertanyaan"},
}

// PackageByID looks up a token package, returning nil when the id is unknown.
func PackageByID(id string) *TokenPackage {
	for i := range TokenPackages {
		if TokenPackages[i].ID == id {
			return &TokenPackages[i]
		}
	}
	return nil
}
