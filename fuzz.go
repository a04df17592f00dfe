package pava

func Fuzz(data []byte) int {
	cf, err := NewBytes(data, &Options{KeepUnknownAttributes: true})
	if err != nil {
		return 0
	}
	err = cf.Parse()
	if err != nil {
		return 0
	}
	return 1
}
