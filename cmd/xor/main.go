package main

import (
	"context"
	"fmt"
	"log"

	"github.com/FlavioCFOliveira/GoNeuronGraph/nngraph"
)

func main() {
	fmt.Println("=== XOR Training Example ===")

	// 2 inputs -> 3 hidden -> 4 hidden -> 1 output, plus two skip edges
	network, err := nngraph.NewFullyConnected(2, []int{3, 4}, 1, nngraph.L2)
	if err != nil {
		log.Fatal(err)
	}
	if err := network.ConnectNodes(0, 0, 2, 1); err != nil {
		log.Fatal(err)
	}
	if err := network.ConnectNodes(1, 2, 3, 0); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Network: 2-3-4-1 with skip edges, %d weights\n", network.NumberWeights())
	fmt.Println("Activations: tanh (hidden), sigmoid (output)")
	fmt.Println("Loss function: L2")

	instances := []nngraph.Instance{
		nngraph.NewInstance([]float64{0}, []float64{0, 0}),
		nngraph.NewInstance([]float64{1}, []float64{0, 1}),
		nngraph.NewInstance([]float64{1}, []float64{1, 0}),
		nngraph.NewInstance([]float64{0}, []float64{1, 1}),
	}
	ds, err := nngraph.NewDataSet("xor", instances)
	if err != nil {
		log.Fatal(err)
	}

	// Verify backpropagation before training
	check := network.Clone()
	check.InitializeRandomly(0.1, nngraph.Seeded(42))
	relErr, err := check.GradientCheck(instances, nngraph.DefaultStep)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Gradient check relative error: %.3g\n", relErr)

	cfg := nngraph.TrainConfig{
		Descent: nngraph.Stochastic,
		Epochs:  3000,
		Bias:    0.1,
		Seed:    42,
	}
	trainer, err := nngraph.NewTrainer(cfg, nngraph.Nesterov(0.05, 0.9), nngraph.Logger(500))
	if err != nil {
		log.Fatal(err)
	}
	res, err := trainer.Run(context.Background(), network, ds)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Final loss: %.6f (best %.6f)\n", res.Final.Loss, res.Final.BestLoss)

	fmt.Println("\nTesting trained network:")
	for _, inst := range instances {
		if _, err := network.Forward(inst); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Input: %v, Predicted: %.4f, Target: %v\n",
			inst.Inputs, network.Outputs()[0], inst.ExpectedOutputs[0])
	}
}
